package progress

import (
	"fmt"
	"strings"
	"time"
)

// Session identifies one analysis run and carries the immutable inputs the
// report is generated from.
type Session struct {
	// ID is the identifier shared with the backend, which keys its progress
	// records by it.
	ID string

	// Company, Sector and Service are the free-text report inputs. They are
	// fixed for the session's lifetime.
	Company string
	Sector  string
	Service string

	// StartedAt is when tracking began. Elapsed time and the simulator
	// grace window are measured from it.
	StartedAt time.Time
}

// NewSession creates a session for the given report inputs with a generated
// identifier in the "analysis_<unix>" form the backend uses.
func NewSession(company, sector, service string) Session {
	now := time.Now()
	return Session{
		ID:        fmt.Sprintf("analysis_%d", now.Unix()),
		Company:   company,
		Sector:    sector,
		Service:   service,
		StartedAt: now,
	}
}

// Validate checks that the report inputs are present. The messages match the
// backend's own validation responses.
func (s Session) Validate() error {
	if strings.TrimSpace(s.Company) == "" {
		return fmt.Errorf("company name cannot be empty")
	}
	if strings.TrimSpace(s.Sector) == "" {
		return fmt.Errorf("business sector cannot be empty")
	}
	if strings.TrimSpace(s.Service) == "" {
		return fmt.Errorf("service type cannot be empty")
	}
	return nil
}

// Elapsed returns the time since tracking began.
func (s Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}
