package survey

import (
	"strings"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

// Main menu labels, as rendered on the reply keyboard.
const (
	LabelStatistics = "📊 Statistics"
	LabelTest       = "🧪 Take a test"
	LabelMethods    = "💡 Methods"
	LabelDeepSurvey = "📝 Deep survey"

	LabelDay   = "Day"
	LabelWeek  = "Week"
	LabelMonth = "Month"
)

const (
	WelcomeText = "Hi! I'm a bot that tracks your emotional state.\n" +
		"Every day I'll ask a few questions to see how you're doing.\n" +
		"You can also take the deep survey or a test, or look at your statistics."

	IdleText = "Use the menu buttons."

	ChoosePeriodText = "Choose a period:"

	MethodsText = "Methods for reducing anxiety:\n" +
		"- 4-7-8 breathing exercise\n" +
		"- Progressive muscle relaxation\n" +
		"- Mindfulness meditation\n\n" +
		"When you feel aggressive:\n" +
		"- Count to 10\n" +
		"- Physical activity\n" +
		"- Emotions journal"
)

// MainMenu is the choice set of the main menu.
func MainMenu() []string {
	return []string{LabelStatistics, LabelTest, LabelMethods, LabelDeepSurvey}
}

// PeriodMenu is the choice set of the statistics sub-menu.
func PeriodMenu() []string {
	return []string{LabelDay, LabelWeek, LabelMonth}
}

// Command is a resolved menu action.
type Command struct {
	Action     domain.MenuAction
	SurveyType domain.SurveyType
	Period     domain.Period
}

// ParseCommand maps a menu label typed or tapped by the user to a Command.
func ParseCommand(text string) (Command, bool) {
	switch strings.TrimSpace(text) {
	case LabelStatistics:
		return Command{Action: domain.ActionShowStatistics}, true
	case LabelTest:
		return Command{Action: domain.ActionStartTest}, true
	case LabelMethods:
		return Command{Action: domain.ActionShowMethods}, true
	case LabelDeepSurvey:
		return Command{Action: domain.ActionStartSurvey, SurveyType: domain.SurveyDeep}, true
	case LabelDay:
		return Command{Action: domain.ActionStats, Period: domain.PeriodDay}, true
	case LabelWeek:
		return Command{Action: domain.ActionStats, Period: domain.PeriodWeek}, true
	case LabelMonth:
		return Command{Action: domain.ActionStats, Period: domain.PeriodMonth}, true
	}
	return Command{}, false
}
