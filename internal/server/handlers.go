package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dispatch"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/optimizer"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/storage"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string          `json:"query"`
	SessionID string          `json:"session_id,omitempty"`
	Hints     optimizer.Hints `json:"hints"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	Query    string `json:"query"`
	Feedback string `json:"feedback"`
}

// DatasetInfo summarizes one loaded dataset.
type DatasetInfo struct {
	Name    string            `json:"name"`
	Rows    int               `json:"rows"`
	Columns []string          `json:"columns"`
	Roles   map[string]string `json:"roles,omitempty"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Datasets  []DatasetInfo  `json:"datasets"`
	Documents int            `json:"documents"`
	Learning  *storage.Stats `json:"learning,omitempty"`
	Started   string         `json:"started"`
	Uptime    string         `json:"uptime"`
}

func (s *Server) user(r *http.Request) dispatch.User {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	if id == "" {
		id = AnonymousUser
	}
	return dispatch.User{ID: id, Role: s.cfg.RoleOf(id)}
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), reqID)
		return
	}

	ans := s.assistant.Ask(r.Context(), assistant.Request{
		Query:     req.Query,
		User:      s.user(r),
		SessionID: req.SessionID,
		Hints:     req.Hints,
	})

	switch {
	case ans.Route == assistant.RouteRejected:
		writeError(w, http.StatusBadRequest, "invalid_input", ans.Text, reqID)
	case ans.Type == dispatch.TypeUnauthorized:
		writeError(w, http.StatusForbidden, "forbidden", ans.Text, reqID)
	default:
		writeSuccess(w, http.StatusOK, "", ans)
	}
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), reqID)
		return
	}
	if strings.TrimSpace(req.Query) == "" || req.Feedback == "" || !storage.ValidFeedback(req.Feedback) {
		writeError(w, http.StatusBadRequest, "invalid_input",
			"query and feedback (positive, negative or helpful) are required", reqID)
		return
	}

	ok, err := s.assistant.Feedback(r.Context(), s.user(r).ID, req.Query, req.Feedback)
	switch {
	case errors.Is(err, assistant.ErrLearningDisabled):
		writeError(w, http.StatusServiceUnavailable, "learning_disabled", err.Error(), reqID)
	case err != nil:
		slog.Warn("failed to store feedback", "request_id", reqID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to store feedback", reqID)
	case !ok:
		writeError(w, http.StatusNotFound, "not_found", "no matching interaction", reqID)
	default:
		writeSuccess(w, http.StatusOK, "feedback recorded", nil)
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	reg := s.assistant.Registry()
	resp := StatusResponse{
		Datasets:  []DatasetInfo{},
		Documents: len(reg.Documents()),
		Started:   s.started.UTC().Format(time.RFC3339),
		Uptime:    strings.TrimSuffix(humanize.Time(s.started), " ago"),
	}
	for _, ds := range reg.Datasets() {
		info := DatasetInfo{Name: ds.Name, Rows: len(ds.Rows), Columns: ds.Columns}
		if len(ds.Roles) > 0 {
			info.Roles = make(map[string]string, len(ds.Roles))
			for role, col := range ds.Roles {
				info.Roles[string(role)] = col
			}
		}
		resp.Datasets = append(resp.Datasets, info)
	}

	if store := s.assistant.Store(); store != nil {
		stats, err := store.Stats(r.Context())
		if err != nil {
			slog.Warn("failed to read learning stats", "error", err)
		} else {
			resp.Learning = &stats
		}
	}
	writeSuccess(w, http.StatusOK, "", resp)
}

func (s *Server) learningReport(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	store := s.assistant.Store()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "learning_disabled", assistant.ErrLearningDisabled.Error(), reqID)
		return
	}
	rep, err := store.Report(r.Context())
	if err != nil {
		slog.Warn("failed to build learning report", "request_id", reqID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build report", reqID)
		return
	}
	writeSuccess(w, http.StatusOK, "", rep)
}

func (s *Server) learningExport(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r.Context())
	store := s.assistant.Store()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "learning_disabled", assistant.ErrLearningDisabled.Error(), reqID)
		return
	}
	var buf bytes.Buffer
	if err := store.Export(r.Context(), &buf); err != nil {
		slog.Warn("failed to export learning data", "request_id", reqID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to export learning data", reqID)
		return
	}

	name := fmt.Sprintf("barcin-learning-%s.json", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = buf.WriteTo(w)
}
