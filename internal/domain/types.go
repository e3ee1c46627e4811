package domain

type UserID string

// SurveyType names a survey template.
type SurveyType string

const (
	SurveyDaily SurveyType = "daily" // Short recurring check-in, drives scheduling and advice
	SurveyDeep  SurveyType = "deep"  // Longer self-assessment
	SurveyState SurveyType = "state" // Current-state self-test
)

type QuestionKind string

const (
	KindScale  QuestionKind = "scale"
	KindBinary QuestionKind = "binary"
)

// MenuAction is an action of the main menu surface.
type MenuAction string

const (
	ActionShowStatistics MenuAction = "show_statistics"
	ActionStartTest      MenuAction = "start_test"
	ActionShowMethods    MenuAction = "show_methods"
	ActionStartSurvey    MenuAction = "start_survey"
	ActionStats          MenuAction = "stats"
)

// Period is a trailing statistics window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)
