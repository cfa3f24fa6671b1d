package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/optimizer"
)

func writeLexicon(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write lexicon: %v", err)
	}
	return path
}

func TestLoadLexicon(t *testing.T) {
	path := writeLexicon(t, `
spelling:
  personal: personel
synonyms:
  mağaza: [dükkan]
departmentAliases:
  - token: ik
    target: İnsan Kaynakları
webTriggers: [borsa, internet]
`)

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon failed: %v", err)
	}
	if lex.Spelling["personal"] != "personel" {
		t.Errorf("unexpected spelling table: %v", lex.Spelling)
	}
	if len(lex.DepartmentAliases) != 1 || lex.DepartmentAliases[0].Target != "İnsan Kaynakları" {
		t.Errorf("unexpected aliases: %v", lex.DepartmentAliases)
	}

	tables := lex.Tables(optimizer.DefaultTables())
	if tables.Spelling["personal"] != "personel" {
		t.Error("lexicon spelling should be merged")
	}
	if tables.Spelling["maas"] != "maaş" {
		t.Error("built-in spelling should survive the merge")
	}
	found := false
	for _, w := range tables.Synonyms["mağaza"] {
		if w == "dükkan" {
			found = true
		}
	}
	if !found {
		t.Errorf("synonym not merged: %v", tables.Synonyms["mağaza"])
	}

	triggers := lex.Triggers()
	count := 0
	for _, w := range triggers {
		if w == "internet" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate trigger words should be dropped, got %v", triggers)
	}
	if triggers[len(triggers)-1] != "borsa" {
		t.Errorf("lexicon triggers should be appended, got %v", triggers)
	}
}

func TestLoadLexiconErrors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		_, err := LoadLexicon(writeLexicon(t, "synonym:\n  a: [b]\n"))
		if err == nil {
			t.Fatal("unknown keys should be rejected")
		}
		if !strings.Contains(err.Error(), "Allowed keys") {
			t.Errorf("error should list allowed keys, got: %v", err)
		}
	})

	t.Run("incomplete alias", func(t *testing.T) {
		_, err := LoadLexicon(writeLexicon(t, "departmentAliases:\n  - token: ik\n"))
		if err == nil || !strings.Contains(err.Error(), "departmentAliases[0]") {
			t.Errorf("incomplete alias should be reported, got: %v", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		lex, err := LoadLexicon(writeLexicon(t, ""))
		if err != nil {
			t.Fatalf("empty lexicon should load, got: %v", err)
		}
		if len(lex.Triggers()) == 0 {
			t.Error("empty lexicon should keep default triggers")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadLexicon(filepath.Join(t.TempDir(), "none.yaml"))
		if err == nil || !strings.Contains(err.Error(), "lexiconPath") {
			t.Errorf("missing file should hint at settings, got: %v", err)
		}
		if !strings.HasPrefix(err.Error(), "lexicon file not found") {
			t.Errorf("error should name the lexicon, got: %v", err)
		}
	})
}

func TestNilLexicon(t *testing.T) {
	var lex *Lexicon
	base := optimizer.DefaultTables()
	if got := lex.Tables(base); len(got.Spelling) != len(base.Spelling) {
		t.Error("nil lexicon should return base tables")
	}
	if len(lex.Triggers()) == 0 {
		t.Error("nil lexicon should return default triggers")
	}
}
