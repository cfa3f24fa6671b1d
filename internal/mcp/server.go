/*
Package mcp implements an MCP server that exposes the assistant as tools.

The server uses stdio transport (one JSON-RPC message per line) and
exposes:
  - barcin_ask: answer a question over the loaded data
  - barcin_datasets: list loaded datasets and documents
  - barcin_analyze: analytics report for one dataset
  - barcin_feedback: rate a previous answer
  - barcin_learning_report: learning performance report

All calls run as the single user the server was started with.
*/
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/analytics"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/version"
)

// ProtocolVersion is the MCP revision the server speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolError      = -32000
)

// maxLine bounds one request line.
const maxLine = 1 << 20

// Server answers MCP requests with an assistant.
type Server struct {
	assistant *assistant.Assistant
	user      dispatch.User
}

// NewServer creates a new MCP server acting as user.
func NewServer(a *assistant.Assistant, user dispatch.User) *Server {
	return &Server{assistant: a, user: user}
}

// Run serves requests read from r and writes responses to w.
// This blocks until r is exhausted or ctx is done.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		response, err := s.handleRequest(ctx, line)
		if err != nil {
			response = &MCPResponse{
				JSONRPC: "2.0",
				Error:   &MCPError{Code: codeParseError, Message: err.Error()},
			}
		}
		if response == nil {
			continue
		}
		if err := enc.Encode(response); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	return scanner.Err()
}

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError represents an MCP error.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolResult is the result of tools/call.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content is one text block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// handleRequest processes an incoming MCP request. Notifications get no
// response.
func (s *Server) handleRequest(ctx context.Context, data []byte) (*MCPResponse, error) {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}
	if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(&req), nil
	case "ping":
		return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}, nil
	case "tools/list":
		return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": s.tools()}}, nil
	case "tools/call":
		return s.handleToolsCall(ctx, &req), nil
	default:
		return errorResponse(req.ID, codeMethodNotFound, "Method not found"), nil
	}
}

func errorResponse(id any, code int, msg string) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: &MCPError{Code: code, Message: msg}}
}

// handleInitialize handles the MCP initialize request.
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "barcin",
				"version": version.Version,
			},
		},
	}
}

// handleToolsCall handles tool execution requests. Tool failures are
// reported in the result with isError so the client model can read them.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	arg := func(key string) string {
		v, _ := params.Arguments[key].(string)
		return v
	}

	var (
		text string
		err  error
	)
	switch params.Name {
	case "barcin_ask":
		text, err = s.execAsk(ctx, arg("query"), arg("session_id"))
	case "barcin_datasets":
		text = s.execDatasets()
	case "barcin_analyze":
		text, err = s.execAnalyze(arg("dataset"), arg("focus"))
	case "barcin_feedback":
		text, err = s.execFeedback(ctx, arg("query"), arg("feedback"))
	case "barcin_learning_report":
		text, err = s.execLearningReport(ctx)
	default:
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	}

	result := ToolResult{Content: []Content{{Type: "text", Text: text}}}
	if err != nil {
		slog.Debug("tool call failed", "tool", params.Name, "err", err)
		result = ToolResult{Content: []Content{{Type: "text", Text: err.Error()}}, IsError: true}
	}
	return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// errToolInput marks arguments the caller must fix.
var errToolInput = errors.New("invalid arguments")

func (s *Server) execAsk(ctx context.Context, query, sessionID string) (string, error) {
	ans := s.assistant.Ask(ctx, assistant.Request{Query: query, User: s.user, SessionID: sessionID})
	if ans.Route == assistant.RouteRejected || ans.Type == dispatch.TypeUnauthorized {
		return "", errors.New(ans.Text)
	}

	var sb strings.Builder
	sb.WriteString(ans.Text)
	if c := ans.Chart; c != nil {
		data, _ := json.Marshal(c)
		fmt.Fprintf(&sb, "\n\nchart: %s", data)
	}
	if len(ans.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n\nBenzer sorular: %s", strings.Join(ans.Suggestions, "; "))
	}
	fmt.Fprintf(&sb, "\n\n(intent=%s confidence=%.2f route=%s)", ans.Intent, ans.Confidence, ans.Route)
	return sb.String(), nil
}

func (s *Server) execDatasets() string {
	reg := s.assistant.Registry()
	if reg.Empty() {
		return "No datasets loaded. Start barcin with --data-dir pointing at a directory of CSV files."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Datasets (%d):\n", len(reg.Datasets()))
	for _, ds := range reg.Datasets() {
		fmt.Fprintf(&sb, "  • %s: %d rows, columns %s\n", ds.Name, len(ds.Rows), strings.Join(ds.Columns, ", "))
	}
	if docs := reg.Documents(); len(docs) > 0 {
		fmt.Fprintf(&sb, "Documents (%d):\n", len(docs))
		for _, d := range docs {
			fmt.Fprintf(&sb, "  • %s\n", d.Name)
		}
	}
	return sb.String()
}

func (s *Server) execAnalyze(name, focus string) (string, error) {
	reg := s.assistant.Registry()
	ds, ok := reg.Get(name)
	if !ok {
		var names []string
		for _, d := range reg.Datasets() {
			names = append(names, d.Name)
		}
		return "", fmt.Errorf("%w: dataset '%s' not found (available: %s)", errToolInput, name, strings.Join(names, ", "))
	}
	if _, hasSalary := ds.RoleColumn(dataset.RoleSalary); hasSalary && s.user.Role != dispatch.RoleAdmin {
		return "", errors.New("bu veri seti maaş bilgisi içeriyor; yalnızca yöneticiler analiz edebilir")
	}

	f := analytics.Focus(focus)
	switch f {
	case "":
		f = analytics.FocusComprehensive
	case analytics.FocusComprehensive, analytics.FocusAnomaly, analytics.FocusTrend, analytics.FocusRecommendations:
	default:
		return "", fmt.Errorf("%w: unknown focus %q", errToolInput, focus)
	}
	return analytics.Respond(analytics.New().Analyze(ds), f).Text, nil
}

func (s *Server) execFeedback(ctx context.Context, query, feedback string) (string, error) {
	if strings.TrimSpace(query) == "" || feedback == "" || !storage.ValidFeedback(feedback) {
		return "", fmt.Errorf("%w: query and feedback (positive, negative or helpful) are required", errToolInput)
	}
	ok, err := s.assistant.Feedback(ctx, s.user.ID, query, feedback)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("no matching interaction")
	}
	return "feedback recorded", nil
}

func (s *Server) execLearningReport(ctx context.Context) (string, error) {
	store := s.assistant.Store()
	if store == nil {
		return "", assistant.ErrLearningDisabled
	}
	rep, err := store.Report(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
