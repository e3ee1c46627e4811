package llm

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

const baseSystemPrompt = `
You are "Farum", a companion focused on mental well-being.

The user just finished a self-assessment survey. Each answer is a number on the
scale given in the question (binary questions use 0 = no, 1 = yes).

Your role:
- Reflect back, in 2-4 short sentences, what the answers suggest.
- Suggest at most one small, realistic step for today.
- You are NOT a therapist, doctor, or emergency service and you do NOT give diagnoses.

Style:
- Simple, warm, everyday language.
- No lists, no headings.

Boundaries and safety:
- If the answers suggest a crisis, encourage the user to reach out to local
  emergency services or a trusted person.
`

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the survey questions and answers for the model.
func BuildPrompt(sctx domain.SurveyContext) Prompt {
	var user strings.Builder
	fmt.Fprintf(&user, "Survey: %s\n\n", sctx.SurveyType)

	for _, q := range sctx.Questions {
		v, ok := sctx.Answers[q.Key]
		if !ok {
			continue
		}
		fmt.Fprintf(&user, "Q: %s\nA: %d\n", q.Prompt, v)
	}

	return Prompt{
		System: baseSystemPrompt,
		User:   strings.TrimRight(user.String(), "\n"),
	}
}
