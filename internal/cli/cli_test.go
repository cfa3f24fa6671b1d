package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/learning"
)

const (
	employeesCSV = "Ad Soyad,Departman,Maaş\nAli Veli,Bilgi İşlem,15000\nAyşe Kaya,Muhasebe,18000\nZeynep Şahin,Web,25000\n"
	storesCSV    = "Mağaza,Ciro 2023,Ciro 2024\nKadıköy,1500000,1800000\nKonak,900000,850000\n"
)

// testEnv writes a data directory and a config file pointing at it.
func testEnv(t *testing.T, learningEnabled bool) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		"calisanlar.csv": employeesCSV,
		"magazalar.csv":  storesCSV,
		"politika.txt":   "Yıllık izin 14 gündür.",
	} {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := map[string]any{
		"users": map[string]any{
			"admin": map[string]any{"role": "admin"},
			"user":  map[string]any{"role": "user"},
		},
		"settings": map[string]any{
			"dataDir":         dataDir,
			"dbPath":          filepath.Join(dir, "learning.db"),
			"logLevel":        "error",
			"learningEnabled": learningEnabled,
		},
	}
	data, _ := json.Marshal(cfg)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with the given args.
func run(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "barcin" {
		t.Errorf("Expected Use='barcin', got %q", cmd.Use)
	}

	want := []string{"serve", "ask", "datasets", "analyze", "learning", "benchmark", "mcp", "version"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Subcommand %q not registered", name)
		}
	}

	for _, flag := range []string{"config", "data-dir", "log-level"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Persistent flag %q not registered", flag)
		}
	}
}

func TestDatasetsCommand(t *testing.T) {
	cfg := testEnv(t, false)

	out, err := run(t, cfg, "", "datasets")
	if err != nil {
		t.Fatalf("datasets failed: %v", err)
	}
	for _, want := range []string{"Datasets (2)", "calisanlar.csv", "magazalar.csv", "Rows:    3", "Documents (1)", "politika.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "", "datasets", "--json")
	if err != nil {
		t.Fatalf("datasets --json failed: %v", err)
	}
	var parsed struct {
		Datasets []datasetSummary `json:"datasets"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, out)
	}
	if len(parsed.Datasets) != 2 {
		t.Errorf("Expected 2 datasets, got %d", len(parsed.Datasets))
	}
}

func TestDatasetsEmptyDir(t *testing.T) {
	cfg := testEnv(t, false)

	out, err := run(t, cfg, "", "--data-dir", t.TempDir(), "datasets")
	if err != nil {
		t.Fatalf("datasets failed: %v", err)
	}
	if !strings.Contains(out, "No datasets loaded.") {
		t.Errorf("Expected empty message, got:\n%s", out)
	}
}

func TestAskCommand(t *testing.T) {
	cfg := testEnv(t, false)

	out, err := run(t, cfg, "", "ask", "--json", "500 * 12 kaç eder?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	var ans assistant.Answer
	if err := json.Unmarshal([]byte(out), &ans); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, out)
	}
	if ans.Route != assistant.RouteMath || ans.Intent != "arithmetic" {
		t.Errorf("Expected math/arithmetic, got %s/%s", ans.Route, ans.Intent)
	}

	out, err = run(t, cfg, "", "ask", "500", "*", "12")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out, "route=math") {
		t.Errorf("Expected meta line, got:\n%s", out)
	}
}

func TestAskUsesConfiguredRole(t *testing.T) {
	cfg := testEnv(t, false)

	out, err := run(t, cfg, "", "ask", "--user", "user", "ortalama maaş")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out, "yetkiniz bulunmamaktadır") {
		t.Errorf("Expected unauthorized answer for user, got:\n%s", out)
	}

	out, err = run(t, cfg, "", "ask", "--user", "admin", "ortalama maaş")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if strings.Contains(out, "yetkiniz bulunmamaktadır") {
		t.Errorf("Admin should see salary statistics, got:\n%s", out)
	}

	out, err = run(t, cfg, "", "ask", "--user", "user", "--role", "admin", "ortalama maaş")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if strings.Contains(out, "yetkiniz bulunmamaktadır") {
		t.Errorf("--role should override the configured role, got:\n%s", out)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	cfg := testEnv(t, false)

	out, err := run(t, cfg, "", "analyze", "magazalar.csv")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("Expected report text")
	}

	out, err = run(t, cfg, "", "analyze", "--json", "magazalar.csv")
	if err != nil {
		t.Fatalf("analyze --json failed: %v", err)
	}
	var rep map[string]any
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, out)
	}

	_, err = run(t, cfg, "", "analyze", "yok.csv")
	if err == nil || !strings.Contains(err.Error(), "calisanlar.csv") {
		t.Errorf("Expected not found error listing datasets, got %v", err)
	}

	_, err = run(t, cfg, "", "analyze", "--focus", "everything", "magazalar.csv")
	if err == nil {
		t.Error("Expected error for unknown focus")
	}
}

func TestLearningLifecycle(t *testing.T) {
	cfg := testEnv(t, true)
	exportPath := filepath.Join(t.TempDir(), "export.json")

	if _, err := run(t, cfg, "", "ask", "500 * 12 kaç eder?"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}

	out, err := run(t, cfg, "", "learning", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "Interactions:  1") {
		t.Errorf("Expected one interaction, got:\n%s", out)
	}

	out, err = run(t, cfg, "", "learning", "report", "--json")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	var rep learning.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("Invalid JSON report: %v\n%s", err, out)
	}
	if rep.Summary.TotalQueries != 1 {
		t.Errorf("Expected one query in report, got %d", rep.Summary.TotalQueries)
	}

	out, err = run(t, cfg, "", "learning", "report")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(out, "Learning Report") || !strings.Contains(out, "Success rate:") {
		t.Errorf("Unexpected report text:\n%s", out)
	}

	if _, err := run(t, cfg, "", "learning", "export", "-o", exportPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Fatalf("export file not written: %v", err)
	}

	out, err = run(t, cfg, "n\n", "learning", "clear")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !strings.Contains(out, "Cancelled") {
		t.Errorf("Expected cancellation, got:\n%s", out)
	}

	if _, err := run(t, cfg, "", "learning", "clear", "--yes"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	out, _ = run(t, cfg, "", "learning", "status")
	if !strings.Contains(out, "Interactions:  0") {
		t.Errorf("Expected cleared store, got:\n%s", out)
	}

	out, err = run(t, cfg, "", "learning", "import", exportPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 1 interactions") {
		t.Errorf("Expected one imported interaction, got:\n%s", out)
	}

	out, err = run(t, cfg, "", "learning", "evict")
	if err != nil {
		t.Fatalf("evict failed: %v", err)
	}
	if !strings.Contains(out, "Evicted 0 interactions") {
		t.Errorf("Fresh data should survive eviction, got:\n%s", out)
	}

	out, err = run(t, cfg, "", "learning", "suggest", "500 * 12 kaç eder?")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !strings.Contains(out, "similarity") {
		t.Errorf("Expected suggestion JSON, got:\n%s", out)
	}
}

func TestLearningDisabled(t *testing.T) {
	cfg := testEnv(t, false)

	_, err := run(t, cfg, "", "learning", "status")
	if !errors.Is(err, assistant.ErrLearningDisabled) {
		t.Errorf("Expected ErrLearningDisabled, got %v", err)
	}
}

func TestBenchmarkCommand(t *testing.T) {
	cfg := testEnv(t, true)
	suite := filepath.Join(t.TempDir(), "suite.json")
	if err := os.WriteFile(suite, []byte(`[{"query":"500 * 12 kaç eder?","role":"user","wantIntent":"arithmetic","wantRoute":"math"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, cfg, "", "benchmark", "--suite", suite)
	if err != nil {
		t.Fatalf("benchmark failed: %v", err)
	}
	if !strings.Contains(out, "100.0% (1/1)") {
		t.Errorf("Expected full accuracy, got:\n%s", out)
	}

	// benchmark runs leave the learning store untouched
	out, _ = run(t, cfg, "", "learning", "status")
	if !strings.Contains(out, "Interactions:  0") {
		t.Errorf("Benchmark should not record interactions, got:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	if err := runVersion(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Version:", "Commit:", "Built:"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestPrintAnswer(t *testing.T) {
	ans := assistant.Answer{
		Response: dispatch.Response{
			Text: "Ciro karşılaştırması",
			Chart: &compute.Chart{
				Type:   "bar",
				Title:  "Ciro",
				Labels: []string{"Kadıköy", "Konak"},
				Series: []compute.Series{{Name: "2024", Data: []float64{1800000, 850000}}},
			},
		},
		Intent:      "comparison",
		Confidence:  0.9,
		Route:       assistant.RouteMath,
		Suggestions: []string{"Konak mağazası"},
	}

	var buf bytes.Buffer
	printAnswer(&buf, ans)
	out := buf.String()
	for _, want := range []string{"Ciro karşılaştırması", "[bar chart] Ciro", "2024 Kadıköy: 1.800.000", "Benzer sorular: Konak mağazası", "route=math"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"evet\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(tt.input), &out, "Continue?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Continue? (y/N)") {
			t.Errorf("Prompt not written: %q", out.String())
		}
	}
}
