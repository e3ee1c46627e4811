package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PabloGalante/farum-checkin/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-checkin/internal/app/journal"
	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/app/survey"
	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

type Server struct {
	engine  *survey.Engine
	stats   *stats.Service
	journal *journal.Service
	outbox  *memory.Outbox
	hub     *Hub

	upgrader websocket.Upgrader
}

// Deps are the collaborators of the HTTP transport. Hub must be the
// notifier the engine sends through, with Outbox as its fallback.
type Deps struct {
	Engine  *survey.Engine
	Stats   *stats.Service
	Journal *journal.Service
	Outbox  *memory.Outbox
	Hub     *Hub
}

func NewServer(deps Deps) http.Handler {
	s := &Server{
		engine:  deps.Engine,
		stats:   deps.Stats,
		journal: deps.Journal,
		outbox:  deps.Outbox,
		hub:     deps.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /users/{id}/start", s.handleStart)
	mux.HandleFunc("POST /users/{id}/messages", s.handleMessage)
	mux.HandleFunc("POST /users/{id}/actions", s.handleAction)
	mux.HandleFunc("GET /users/{id}/outbox", s.handleOutbox)
	mux.HandleFunc("GET /users/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /users/{id}/stats", s.handleStats)
	mux.HandleFunc("GET /users/{id}/history", s.handleHistory)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type messageRequest struct {
	Text string `json:"text"`
}

type actionRequest struct {
	Action     string `json:"action"`
	SurveyType string `json:"survey_type,omitempty"`
	Period     string `json:"period,omitempty"`
}

type outboundResponse struct {
	Text      string    `json:"text"`
	Choices   []string  `json:"choices,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type messagesResponse struct {
	Messages []outboundResponse `json:"messages"`
}

type statsResponse struct {
	Period      string             `json:"period"`
	WindowStart time.Time          `json:"window_start"`
	RecordCount int                `json:"record_count"`
	Averages    map[string]float64 `json:"averages"`
	Text        string             `json:"text"`
}

type answerResponse struct {
	ID         string         `json:"id,omitempty"`
	Timestamp  string         `json:"timestamp"`
	SurveyType string         `json:"survey_type"`
	Fields     map[string]any `json:"fields"`
}

type historyResponse struct {
	Answers []answerResponse `json:"answers"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	userID, ctx, ok := userFromPath(w, r)
	if !ok {
		return
	}

	if err := s.engine.Start(ctx, userID); err != nil {
		internalError(w, r, err)
		return
	}
	s.writeReplies(w, userID)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	userID, ctx, ok := userFromPath(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	if err := s.engine.HandleText(ctx, userID, req.Text); err != nil {
		internalError(w, r, err)
		return
	}
	s.writeReplies(w, userID)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	userID, ctx, ok := userFromPath(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	cmd, err := parseAction(req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := s.engine.HandleCommand(ctx, userID, cmd); err != nil {
		if errors.Is(err, domain.ErrUnknownSurvey) {
			badRequest(w, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}
	s.writeReplies(w, userID)
}

func (s *Server) handleOutbox(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := userFromPath(w, r)
	if !ok {
		return
	}
	s.writeReplies(w, userID)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, ctx, ok := userFromPath(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	c := &streamClient{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	s.hub.register(c)

	// Deliver whatever queued up while the user was offline.
	for _, msg := range s.outbox.Drain(userID) {
		_ = s.hub.SendPrompt(ctx, msg)
	}

	go c.writePump()

	// The request context ends with the handler; the stream outlives neither.
	streamCtx := observability.WithUserID(context.WithoutCancel(ctx), string(userID))
	c.readPump(streamCtx, func(ctx context.Context, text string) {
		if err := s.engine.HandleText(ctx, userID, text); err != nil {
			observability.LoggerFromContext(ctx).Error("stream message failed", "error", err)
		}
	})
	s.hub.unregister(c)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ctx, ok := userFromPath(w, r)
	if !ok {
		return
	}

	periodParam := r.URL.Query().Get("period")
	if periodParam == "" {
		periodParam = string(domain.PeriodWeek)
	}
	period, err := stats.ParsePeriod(periodParam)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	report, err := s.stats.Report(ctx, userID, period)
	if err != nil {
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Period:      string(report.Period),
		WindowStart: report.WindowStart,
		RecordCount: report.RecordCount,
		Averages:    report.Averages,
		Text:        stats.Render(report, stats.DefaultDisplayNames),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ctx, ok := userFromPath(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	answers, err := s.journal.GetUserHistory(ctx, userID, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := historyResponse{Answers: make([]answerResponse, 0, len(answers))}
	for _, a := range answers {
		resp.Answers = append(resp.Answers, answerResponse{
			ID:         a.ID,
			Timestamp:  a.Timestamp,
			SurveyType: string(a.SurveyType),
			Fields:     a.Fields,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func userFromPath(w http.ResponseWriter, r *http.Request) (domain.UserID, context.Context, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		badRequest(w, "user id is required")
		return "", nil, false
	}
	ctx := observability.WithUserID(r.Context(), id)
	return domain.UserID(id), ctx, true
}

func parseAction(req actionRequest) (survey.Command, error) {
	switch domain.MenuAction(req.Action) {
	case domain.ActionShowStatistics, domain.ActionShowMethods, domain.ActionStartTest:
		return survey.Command{Action: domain.MenuAction(req.Action)}, nil
	case domain.ActionStartSurvey:
		if req.SurveyType == "" {
			return survey.Command{}, errors.New("survey_type is required")
		}
		return survey.Command{
			Action:     domain.ActionStartSurvey,
			SurveyType: domain.SurveyType(req.SurveyType),
		}, nil
	case domain.ActionStats:
		period, err := stats.ParsePeriod(req.Period)
		if err != nil {
			return survey.Command{}, err
		}
		return survey.Command{Action: domain.ActionStats, Period: period}, nil
	default:
		return survey.Command{}, errors.New("unknown action")
	}
}

// writeReplies drains the user's outbox into the response body.
func (s *Server) writeReplies(w http.ResponseWriter, userID domain.UserID) {
	msgs := s.outbox.Drain(userID)
	resp := messagesResponse{Messages: make([]outboundResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, outboundResponse{
			Text:      m.Text,
			Choices:   m.Choices,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
