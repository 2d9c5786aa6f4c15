package analytics

import (
	"time"

	"github.com/pulseboard/pulse/pkg/api"
)

// DateRange is a resolved half-open interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the whole days covered by the range, at least 1.
func (r DateRange) Days() int {
	d := int(r.End.Sub(r.Start).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// ResolveRange turns a preset name into explicit bounds ending now. The
// empty preset defaults to a week.
func ResolveRange(preset string, now time.Time) (DateRange, error) {
	var days int
	switch preset {
	case "1d":
		days = 1
	case "7d", "":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		return DateRange{}, api.NewClientInputError("range",
			"range must be one of 1d, 7d, 30d, 90d")
	}
	return DateRange{Start: now.AddDate(0, 0, -days), End: now}, nil
}
