package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/intent"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/optimizer"
)

// Lexicon extends the built-in word tables. Example:
//
//	spelling:
//	  personal: personel
//	synonyms:
//	  mağaza: [dükkan]
//	departmentAliases:
//	  - token: ik
//	    target: İnsan Kaynakları
//	webTriggers: [borsa, bitcoin]
type Lexicon struct {
	Spelling          map[string]string   `yaml:"spelling"`
	Synonyms          map[string][]string `yaml:"synonyms"`
	DepartmentAliases []compute.Alias     `yaml:"departmentAliases"`
	WebTriggers       []string            `yaml:"webTriggers"`
}

// LoadLexicon reads a lexicon file. Unknown keys are rejected so typos do
// not silently disable an entry.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := readFile(path, kindLexicon, "Remove settings.lexiconPath or create the file")
	if err != nil {
		return nil, err
	}

	var lex Lexicon
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty file is an empty lexicon
	if err := dec.Decode(&lex); err != nil && !errors.Is(err, io.EOF) {
		return nil, &InvalidConfigError{
			Path:    path,
			Kind:    kindLexicon,
			Message: fmt.Sprintf("YAML parse error: %v", err),
			Hint:    "Allowed keys: spelling, synonyms, departmentAliases, webTriggers",
		}
	}
	for i, a := range lex.DepartmentAliases {
		if a.Token == "" || a.Target == "" {
			return nil, &InvalidConfigError{
				Path:    path,
				Kind:    kindLexicon,
				Message: fmt.Sprintf("departmentAliases[%d]: token and target are required", i),
			}
		}
	}
	return &lex, nil
}

// Tables overlays the lexicon on base.
func (l *Lexicon) Tables(base optimizer.Tables) optimizer.Tables {
	if l == nil {
		return base
	}
	return base.Merge(optimizer.Tables{Spelling: l.Spelling, Synonyms: l.Synonyms})
}

// Triggers returns the built-in web triggers plus the lexicon's own.
func (l *Lexicon) Triggers() []string {
	out := append([]string(nil), intent.DefaultWebTriggers...)
	if l == nil {
		return out
	}
	seen := make(map[string]bool, len(out))
	for _, w := range out {
		seen[w] = true
	}
	for _, w := range l.WebTriggers {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
