package survey

const (
	AdviceLowMood    = "Your mood is low. Try doing something nice for yourself."
	AdviceAnxiety    = "Your anxiety level is high. I recommend the 4-7-8 breathing exercise."
	AdviceAggression = "There was aggression today. Try physical activity or an emotions journal."
	AdvicePositive   = "You're doing well! Keep it up."
)

// Advice evaluates the daily survey rules. Rules are independent and kept in
// a fixed order: feeling, anxiety, aggression. Missing answers count as
// neutral (feeling 3, anxiety 3, aggression 0).
func Advice(answers map[string]int) []string {
	feeling := valueOr(answers, "feeling", 3)
	anxiety := valueOr(answers, "anxiety", 3)
	aggression := valueOr(answers, "aggression", 0)

	var out []string
	if feeling <= 2 {
		out = append(out, AdviceLowMood)
	}
	if anxiety >= 4 {
		out = append(out, AdviceAnxiety)
	}
	if aggression == 1 {
		out = append(out, AdviceAggression)
	}
	if len(out) == 0 {
		out = append(out, AdvicePositive)
	}
	return out
}

func valueOr(m map[string]int, key string, def int) int {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}
