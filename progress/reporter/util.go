package reporter

import (
	"time"

	"github.com/opportuna/analysis-tracker/progress"
)

// normalize updates the state with calculated values.
// - Sets Timestamp to now if zero
// - Clamps Percent into the 0-100 range
func normalize(s *progress.State) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	if s.Percent < 0 {
		s.Percent = 0
	}
	if s.Percent > 100 {
		s.Percent = 100
	}
}
