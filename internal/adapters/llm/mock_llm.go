package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, sctx domain.SurveyContext) (string, error) {
	// Minimal canned reflection, enough to exercise the flow locally.
	return fmt.Sprintf("Thank you for taking the time to look inward. You answered %d questions today; "+
		"notice which answer surprised you most.", len(sctx.Answers)), nil
}
