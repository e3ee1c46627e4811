package domain

import "time"

// QuestionSpec is one question of a survey template.
type QuestionSpec struct {
	Key    string       `yaml:"key" json:"key"`
	Prompt string       `yaml:"prompt" json:"prompt"`
	Kind   QuestionKind `yaml:"kind" json:"kind"`
	Min    int          `yaml:"min,omitempty" json:"min,omitempty"`
	Max    int          `yaml:"max,omitempty" json:"max,omitempty"`
}

var (
	scaleChoices  = []string{"1", "2", "3", "4", "5"}
	binaryChoices = []string{"0", "1"}
)

// Choices returns the reply choice set rendered next to the prompt.
func (q QuestionSpec) Choices() []string {
	if q.Kind == KindBinary {
		return append([]string(nil), binaryChoices...)
	}
	return append([]string(nil), scaleChoices...)
}

// SurveyTemplate is an ordered sequence of questions identified by its type.
type SurveyTemplate struct {
	Type      SurveyType     `yaml:"type" json:"type"`
	Title     string         `yaml:"title" json:"title"`
	Questions []QuestionSpec `yaml:"questions" json:"questions"`
}

func (t *SurveyTemplate) Len() int {
	return len(t.Questions)
}

// SessionState is the in-memory progress of one user through one survey.
type SessionState struct {
	UserID     UserID
	SurveyType SurveyType
	// Generation identifies one Begin; a replaced session never shares it.
	Generation uint64
	Step       int
	Total      int
	Answers    map[string]int
	StartedAt  time.Time
}

// Clone returns a copy that shares nothing with the receiver.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.Answers = make(map[string]int, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return &out
}

// AdvanceResult reports the outcome of recording one answer.
type AdvanceResult struct {
	SurveyType SurveyType
	NextStep   int
	Completed  bool

	// Answers is the finalized snapshot, set only when Completed.
	Answers map[string]int
}
