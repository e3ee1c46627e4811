package survey

import (
	"strconv"
	"strings"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

// Validate parses raw as an answer to q. Rejections are *domain.ValidationError.
func Validate(q domain.QuestionSpec, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &domain.ValidationError{Reason: domain.ReasonNotANumber}
	}

	switch q.Kind {
	case domain.KindBinary:
		if v != 0 && v != 1 {
			return 0, &domain.ValidationError{Reason: domain.ReasonInvalidBinary}
		}
	default:
		if v < q.Min || v > q.Max {
			return 0, &domain.ValidationError{Reason: domain.ReasonOutOfRange, Min: q.Min, Max: q.Max}
		}
	}
	return v, nil
}
