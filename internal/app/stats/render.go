package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

// DisplayName pairs a field key with its rendered label.
type DisplayName struct {
	Key   string
	Label string
}

// DefaultDisplayNames lists the known fields in rendering order.
var DefaultDisplayNames = []DisplayName{
	{"feeling", "Mood"},
	{"anxiety", "Anxiety"},
	{"aggression", "Aggression"},
	{"energy", "Energy"},
	{"apathy", "Apathy"},
	{"irritation", "Irritation"},
	{"stress", "Stress"},
	{"sleep_quality", "Sleep"},
	{"focus", "Focus"},
	{"support", "Support"},
}

// Render formats the report for a chat message. Fields follow the order of
// names; fields not listed follow alphabetically with a capitalized key.
func Render(r Report, names []DisplayName) string {
	if r.TotalRecords == 0 {
		return "You have no data for statistics yet."
	}
	if r.Empty() {
		return fmt.Sprintf("No data for the selected period (%s).", periodLabel(r.Period))
	}

	lines := []string{
		fmt.Sprintf("📊 Statistics for %s:", periodLabel(r.Period)),
		fmt.Sprintf("Records: %d", r.RecordCount),
	}
	for _, key := range OrderedKeys(r.Averages, names) {
		lines = append(lines, fmt.Sprintf("%s: %.1f/5", label(key, names), r.Averages[key]))
	}
	return strings.Join(lines, "\n")
}

// OrderedKeys returns the keys of averages in display order.
func OrderedKeys(averages map[string]float64, names []DisplayName) []string {
	out := make([]string, 0, len(averages))
	listed := make(map[string]bool, len(names))
	for _, n := range names {
		listed[n.Key] = true
		if _, ok := averages[n.Key]; ok {
			out = append(out, n.Key)
		}
	}

	var rest []string
	for key := range averages {
		if !listed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func label(key string, names []DisplayName) string {
	for _, n := range names {
		if n.Key == key {
			return n.Label
		}
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
}

func periodLabel(p domain.Period) string {
	if p == "" {
		return "the window"
	}
	return string(p)
}
