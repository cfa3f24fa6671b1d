package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/learning"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
)

func testAssistant(withStore bool) *assistant.Assistant {
	employees := dataset.New("calisanlar.csv",
		[]string{"Ad Soyad", "Departman", "Maaş"},
		[][]string{
			{"Ali Veli", "Bilgi İşlem", "15000"},
			{"Ayşe Kaya", "Muhasebe", "18000"},
			{"Zeynep Şahin", "Web", "25000"},
		})
	stores := dataset.New("magazalar.csv",
		[]string{"Mağaza", "Ciro 2023", "Ciro 2024"},
		[][]string{
			{"Kadıköy", "1500000", "1800000"},
			{"Konak", "900000", "850000"},
		})
	reg := dataset.NewRegistry([]*dataset.Dataset{employees, stores}, nil)

	var opts []assistant.Option
	if withStore {
		opts = append(opts, assistant.WithStore(learning.NewStore(storage.NewMemoryStorage())))
	}
	return assistant.New(reg, opts...)
}

// roundTrip feeds the lines to a server and decodes every response.
func roundTrip(t *testing.T, s *Server, lines ...string) []MCPResponse {
	t.Helper()
	var out bytes.Buffer
	if err := s.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var responses []MCPResponse
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r MCPResponse
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		responses = append(responses, r)
	}
	return responses
}

func call(id int, tool string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	})
	return string(data)
}

// toolResult re-decodes a generic result into a ToolResult.
func toolResult(t *testing.T, r MCPResponse) ToolResult {
	t.Helper()
	if r.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %+v", r.Error)
	}
	data, _ := json.Marshal(r.Result)
	var tr ToolResult
	if err := json.Unmarshal(data, &tr); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
	if len(tr.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	return tr
}

func TestInitializeAndToolsList(t *testing.T) {
	s := NewServer(testAssistant(false), dispatch.User{ID: "user", Role: "user"})
	resps := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)

	if len(resps) != 2 {
		t.Fatalf("Expected 2 responses (notification ignored), got %d", len(resps))
	}

	init := resps[0].Result.(map[string]any)
	if init["protocolVersion"] != ProtocolVersion {
		t.Errorf("Expected protocol %s, got %v", ProtocolVersion, init["protocolVersion"])
	}
	info := init["serverInfo"].(map[string]any)
	if info["name"] != "barcin" {
		t.Errorf("Expected server name barcin, got %v", info["name"])
	}

	tools := resps[1].Result.(map[string]any)["tools"].([]any)
	if len(tools) != 5 {
		t.Fatalf("Expected 5 tools, got %d", len(tools))
	}
	ask := tools[0].(map[string]any)
	if ask["name"] != "barcin_ask" {
		t.Errorf("Expected barcin_ask first, got %v", ask["name"])
	}
	if !strings.Contains(ask["description"].(string), "calisanlar.csv, magazalar.csv") {
		t.Errorf("Description should list datasets: %s", ask["description"])
	}
}

func TestUnknownMethodAndBadJSON(t *testing.T) {
	s := NewServer(testAssistant(false), dispatch.User{ID: "user", Role: "user"})
	resps := roundTrip(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`not json`,
		`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
	)

	if len(resps) != 3 {
		t.Fatalf("Expected 3 responses, got %d", len(resps))
	}
	if resps[0].Error == nil || resps[0].Error.Code != codeMethodNotFound {
		t.Errorf("Expected method not found, got %+v", resps[0].Error)
	}
	if resps[1].Error == nil || resps[1].Error.Code != codeParseError {
		t.Errorf("Expected parse error, got %+v", resps[1].Error)
	}
	if resps[2].Error != nil {
		t.Errorf("Expected ping to succeed, got %+v", resps[2].Error)
	}
}

func TestAskTool(t *testing.T) {
	s := NewServer(testAssistant(false), dispatch.User{ID: "user", Role: "user"})
	resps := roundTrip(t, s,
		call(1, "barcin_ask", map[string]any{"query": "500 * 12 kaç eder?"}),
		call(2, "barcin_ask", map[string]any{"query": "   "}),
		call(3, "barcin_nope", nil),
	)

	ok := toolResult(t, resps[0])
	if ok.IsError {
		t.Errorf("Expected success, got %s", ok.Content[0].Text)
	}
	if !strings.Contains(ok.Content[0].Text, "6.000") && !strings.Contains(ok.Content[0].Text, "6000") {
		t.Errorf("Expected result 6000 in %q", ok.Content[0].Text)
	}
	if !strings.Contains(ok.Content[0].Text, "route=math") {
		t.Errorf("Expected route metadata in %q", ok.Content[0].Text)
	}

	if rejected := toolResult(t, resps[1]); !rejected.IsError {
		t.Error("Expected empty query to be reported as tool error")
	}

	if resps[2].Error == nil || resps[2].Error.Code != codeInvalidParams {
		t.Errorf("Expected unknown tool error, got %+v", resps[2].Error)
	}
}

func TestDatasetsTool(t *testing.T) {
	s := NewServer(testAssistant(false), dispatch.User{ID: "user", Role: "user"})
	resps := roundTrip(t, s, call(1, "barcin_datasets", nil))

	text := toolResult(t, resps[0]).Content[0].Text
	for _, want := range []string{"Datasets (2)", "calisanlar.csv: 3 rows", "magazalar.csv: 2 rows"} {
		if !strings.Contains(text, want) {
			t.Errorf("Output missing %q:\n%s", want, text)
		}
	}
}

func TestAnalyzeToolRequiresAdminForSalaryData(t *testing.T) {
	a := testAssistant(false)
	user := NewServer(a, dispatch.User{ID: "user", Role: "user"})
	admin := NewServer(a, dispatch.User{ID: "admin", Role: dispatch.RoleAdmin})

	denied := toolResult(t, roundTrip(t, user, call(1, "barcin_analyze", map[string]any{"dataset": "calisanlar.csv"}))[0])
	if !denied.IsError {
		t.Error("Expected non-admin salary analysis to fail")
	}

	stores := toolResult(t, roundTrip(t, user, call(1, "barcin_analyze", map[string]any{"dataset": "magazalar.csv", "focus": "trend"}))[0])
	if stores.IsError {
		t.Errorf("Expected store analysis to succeed, got %s", stores.Content[0].Text)
	}

	allowed := toolResult(t, roundTrip(t, admin, call(1, "barcin_analyze", map[string]any{"dataset": "calisanlar.csv"}))[0])
	if allowed.IsError {
		t.Errorf("Expected admin analysis to succeed, got %s", allowed.Content[0].Text)
	}

	missing := toolResult(t, roundTrip(t, admin, call(1, "barcin_analyze", map[string]any{"dataset": "yok.csv"}))[0])
	if !missing.IsError || !strings.Contains(missing.Content[0].Text, "calisanlar.csv") {
		t.Errorf("Expected not found listing datasets, got %+v", missing)
	}

	badFocus := toolResult(t, roundTrip(t, admin, call(1, "barcin_analyze", map[string]any{"dataset": "magazalar.csv", "focus": "x"}))[0])
	if !badFocus.IsError {
		t.Error("Expected unknown focus to fail")
	}
}

func TestFeedbackAndReport(t *testing.T) {
	s := NewServer(testAssistant(true), dispatch.User{ID: "user", Role: "user"})
	resps := roundTrip(t, s,
		call(1, "barcin_ask", map[string]any{"query": "500 * 12 kaç eder?"}),
		call(2, "barcin_feedback", map[string]any{"query": "500 * 12 kaç eder?", "feedback": "positive"}),
		call(3, "barcin_feedback", map[string]any{"query": "hiç sorulmadı", "feedback": "negative"}),
		call(4, "barcin_feedback", map[string]any{"query": "x", "feedback": "great"}),
		call(5, "barcin_learning_report", nil),
	)

	if r := toolResult(t, resps[1]); r.IsError {
		t.Errorf("Expected feedback to be recorded, got %s", r.Content[0].Text)
	}
	if r := toolResult(t, resps[2]); !r.IsError || r.Content[0].Text != "no matching interaction" {
		t.Errorf("Expected no matching interaction, got %+v", r)
	}
	if r := toolResult(t, resps[3]); !r.IsError {
		t.Error("Expected invalid feedback value to fail")
	}

	var rep learning.Report
	if err := json.Unmarshal([]byte(toolResult(t, resps[4]).Content[0].Text), &rep); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if rep.Summary.TotalQueries != 1 {
		t.Errorf("Expected 1 query in report, got %d", rep.Summary.TotalQueries)
	}
}

func TestLearningToolsWithoutStore(t *testing.T) {
	s := NewServer(testAssistant(false), dispatch.User{ID: "user", Role: "user"})
	resps := roundTrip(t, s,
		call(1, "barcin_learning_report", nil),
		call(2, "barcin_feedback", map[string]any{"query": "x", "feedback": "positive"}),
	)
	for i, r := range resps {
		tr := toolResult(t, r)
		if !tr.IsError || !strings.Contains(tr.Content[0].Text, "learning is disabled") {
			t.Errorf("Response %d: expected learning disabled, got %+v", i, tr)
		}
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	s := NewServer(testAssistant(false), dispatch.User{ID: "user", Role: "user"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Run(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if err == nil {
		t.Error("Expected context error")
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output, got %q", out.String())
	}
}
