package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

// Engine drives each user through survey templates: it starts sessions,
// validates answers, advances steps and commits finished surveys.
type Engine struct {
	catalog  *Catalog
	sessions domain.SessionStore
	users    domain.UserStore
	notifier domain.Notifier
	stats    *stats.Service

	// llm is optional; when set, finished deep surveys get a reflection.
	llm domain.LLMClient
	now func() time.Time
}

type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithReflection enables LLM reflections after deep surveys.
func WithReflection(llm domain.LLMClient) Option {
	return func(e *Engine) { e.llm = llm }
}

// WithStats sets the statistics service used by the menu.
func WithStats(svc *stats.Service) Option {
	return func(e *Engine) { e.stats = svc }
}

func NewEngine(
	catalog *Catalog,
	sessions domain.SessionStore,
	users domain.UserStore,
	notifier domain.Notifier,
	opts ...Option,
) *Engine {
	e := &Engine{
		catalog:  catalog,
		sessions: sessions,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stats == nil {
		e.stats = stats.NewService(users, time.Local).WithClock(e.now)
	}
	return e
}

// ─────────────────────────────────────────────
// Session lifecycle
// ─────────────────────────────────────────────

// Start registers the user and shows the main menu.
func (e *Engine) Start(ctx context.Context, userID domain.UserID) error {
	ctx = observability.WithUserID(ctx, string(userID))
	log := observability.LoggerFromContext(ctx)

	if _, err := e.users.GetOrCreateUser(ctx, userID); err != nil {
		log.Error("failed to register user", "error", err)
		return fmt.Errorf("register user %s: %w", userID, err)
	}

	log.Info("user started")
	e.send(ctx, userID, WelcomeText, MainMenu())
	return nil
}

// HasActiveSession reports whether the user is in the middle of a survey.
func (e *Engine) HasActiveSession(userID domain.UserID) bool {
	_, ok := e.sessions.Get(userID)
	return ok
}

// BeginSurvey starts surveyType at step 0, discarding any survey in flight.
// It reports whether a prior session was abandoned.
func (e *Engine) BeginSurvey(ctx context.Context, userID domain.UserID, surveyType domain.SurveyType) (bool, error) {
	tmpl, err := e.catalog.Template(surveyType)
	if err != nil {
		return false, err
	}

	ctx = observability.WithUserID(ctx, string(userID))
	log := observability.LoggerFromContext(ctx).With("survey_type", surveyType)

	replaced := e.sessions.Begin(userID, surveyType, tmpl.Len(), e.now())
	if replaced {
		log.Warn("previous survey abandoned")
		e.send(ctx, userID, fmt.Sprintf("Previous survey interrupted. Starting the %s.", tmpl.Title), nil)
	}

	log.Info("survey started", "questions", tmpl.Len())
	e.prompt(ctx, userID, tmpl.Questions[0])
	return replaced, nil
}

// HandleText processes one incoming text message from a user.
func (e *Engine) HandleText(ctx context.Context, userID domain.UserID, text string) error {
	ctx = observability.WithUserID(ctx, string(userID))
	if cmd, ok := ParseCommand(text); ok {
		return e.HandleCommand(ctx, userID, cmd)
	}

	state, ok := e.sessions.Get(userID)
	if !ok {
		e.send(ctx, userID, IdleText, MainMenu())
		return nil
	}

	tmpl, err := e.catalog.Template(state.SurveyType)
	if err != nil {
		e.sessions.Discard(userID)
		return err
	}
	if state.Step >= tmpl.Len() {
		e.sessions.Discard(userID)
		return fmt.Errorf("session step %d outside %s template", state.Step, state.SurveyType)
	}

	log := observability.LoggerFromContext(ctx).With(
		"survey_type", state.SurveyType,
		"step", state.Step,
	)

	question := tmpl.Questions[state.Step]
	value, err := Validate(question, text)
	if err != nil {
		log.Debug("answer rejected", "error", err)
		e.send(ctx, userID, err.Error(), nil)
		e.prompt(ctx, userID, question)
		return nil
	}

	res, err := e.sessions.Advance(userID, state.Generation, state.Step, question.Key, value)
	if err != nil {
		if errors.Is(err, domain.ErrStaleStep) || errors.Is(err, domain.ErrNoSession) {
			// A duplicate delivery or a newer survey got there first.
			log.Debug("answer ignored", "reason", err)
			return nil
		}
		return err
	}

	if !res.Completed {
		log.Info("survey advanced", "next_step", res.NextStep)
		e.prompt(ctx, userID, tmpl.Questions[res.NextStep])
		return nil
	}

	return e.complete(ctx, userID, tmpl, res.Answers)
}

// complete commits a finished survey and sends the closing feedback.
func (e *Engine) complete(ctx context.Context, userID domain.UserID, tmpl *domain.SurveyTemplate, answers map[string]int) error {
	log := observability.LoggerFromContext(ctx).With("survey_type", tmpl.Type)

	now := e.now()
	ts := domain.FormatTimestamp(now)

	fields := make(map[string]any, len(answers))
	for k, v := range answers {
		fields[k] = v
	}

	upd := domain.UserUpdate{
		AppendAnswers: []domain.AnswerRecord{{
			ID:         uuid.NewString(),
			Timestamp:  ts,
			SurveyType: tmpl.Type,
			Fields:     fields,
		}},
	}
	if tmpl.Type == domain.SurveyDaily {
		upd.LastDailyPollTime = &ts
	}

	if err := e.users.UpdateUser(ctx, userID, upd); err != nil {
		log.Error("failed to save answers", "error", err)
		e.send(ctx, userID, "Sorry, your answers could not be saved.", MainMenu())
		return fmt.Errorf("save %s answers for %s: %w", tmpl.Type, userID, err)
	}

	log.Info("survey completed", "answers", len(answers))
	e.send(ctx, userID, e.completionText(ctx, tmpl, userID, answers), MainMenu())
	return nil
}

func (e *Engine) completionText(ctx context.Context, tmpl *domain.SurveyTemplate, userID domain.UserID, answers map[string]int) string {
	switch tmpl.Type {
	case domain.SurveyDaily:
		return "Thank you for your answers!\n" + strings.Join(Advice(answers), "\n")
	case domain.SurveyDeep:
		text := "Thank you for completing the deep survey! Your answers are saved."
		if reflection := e.reflect(ctx, tmpl, userID, answers); reflection != "" {
			text += "\n\n" + reflection
		}
		return text
	default:
		return fmt.Sprintf("Thank you for completing the %s! Your answers are saved.", tmpl.Title)
	}
}

func (e *Engine) reflect(ctx context.Context, tmpl *domain.SurveyTemplate, userID domain.UserID, answers map[string]int) string {
	if e.llm == nil {
		return ""
	}
	reply, err := e.llm.GenerateReply(ctx, domain.SurveyContext{
		UserID:     userID,
		SurveyType: tmpl.Type,
		Questions:  tmpl.Questions,
		Answers:    answers,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("reflection failed", "error", err)
		return ""
	}
	return strings.TrimSpace(reply)
}

// ─────────────────────────────────────────────
// Menu
// ─────────────────────────────────────────────

// HandleCommand runs a main-menu action.
func (e *Engine) HandleCommand(ctx context.Context, userID domain.UserID, cmd Command) error {
	ctx = observability.WithUserID(ctx, string(userID))
	switch cmd.Action {
	case domain.ActionShowStatistics:
		e.send(ctx, userID, ChoosePeriodText, PeriodMenu())
		return nil
	case domain.ActionShowMethods:
		e.send(ctx, userID, MethodsText, nil)
		return nil
	case domain.ActionStartTest:
		_, err := e.BeginSurvey(ctx, userID, domain.SurveyState)
		return err
	case domain.ActionStartSurvey:
		_, err := e.BeginSurvey(ctx, userID, cmd.SurveyType)
		return err
	case domain.ActionStats:
		report, err := e.stats.Report(ctx, userID, cmd.Period)
		if err != nil {
			return err
		}
		e.send(ctx, userID, stats.Render(report, stats.DefaultDisplayNames), nil)
		return nil
	default:
		return fmt.Errorf("unknown menu action %q", cmd.Action)
	}
}

// ─────────────────────────────────────────────
// Transport helpers
// ─────────────────────────────────────────────

func (e *Engine) prompt(ctx context.Context, userID domain.UserID, q domain.QuestionSpec) {
	e.send(ctx, userID, q.Prompt, q.Choices())
}

// send is fire-and-forget: transport failures are logged only.
func (e *Engine) send(ctx context.Context, userID domain.UserID, text string, choices []string) {
	msg := domain.OutboundMessage{
		UserID:    userID,
		Text:      text,
		Choices:   choices,
		CreatedAt: e.now(),
	}
	if err := e.notifier.SendPrompt(ctx, msg); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to send message", "error", err)
	}
}
