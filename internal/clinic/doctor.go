package clinic

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDoctorNotFound is returned when no doctor matches a name query or id.
	ErrDoctorNotFound = errors.New("clinic: doctor not found")
	// ErrInvalidWindow is returned for an unrecognized stats window.
	ErrInvalidWindow = errors.New("clinic: invalid query_type")
)

// Doctor is a clinician from the directory. The core never mutates it.
type Doctor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Specialization string `json:"specialization"`
	SlackID        string `json:"slack_id,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// AvailabilityTemplate is a recurring weekly capacity rule. Weekday is 0 for
// Monday through 6 for Sunday; Start and End are offsets from local midnight.
type AvailabilityTemplate struct {
	DoctorID     int64
	Weekday      int
	Start        time.Duration
	End          time.Duration
	SlotDuration time.Duration
}

// Directory is the read-only doctor directory consumed by the scheduling core.
type Directory interface {
	// SearchDoctors returns doctors whose name contains fragment, case-insensitively, ordered by id.
	SearchDoctors(ctx context.Context, fragment string) ([]Doctor, error)
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	// ListDoctors filters by a case-insensitive specialization substring; empty lists everyone.
	ListDoctors(ctx context.Context, specialization string) ([]Doctor, error)
	Templates(ctx context.Context, doctorID int64, weekday int) ([]AvailabilityTemplate, error)
}

// ResolveDoctor finds the doctor a free-text query refers to. A multi-token
// query with no match is retried on its last token. The first match wins.
func ResolveDoctor(ctx context.Context, dir Directory, query string) (*Doctor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrDoctorNotFound
	}

	matches, err := dir.SearchDoctors(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("clinic: search doctors: %w", err)
	}
	if len(matches) == 0 {
		tokens := strings.Fields(query)
		if len(tokens) >= 2 {
			matches, err = dir.SearchDoctors(ctx, tokens[len(tokens)-1])
			if err != nil {
				return nil, fmt.Errorf("clinic: search doctors: %w", err)
			}
		}
	}
	if len(matches) == 0 {
		return nil, ErrDoctorNotFound
	}
	doc := matches[0]
	return &doc, nil
}

// Weekday maps a date onto the template convention (Monday = 0).
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(raw string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, fmt.Errorf("clinic: invalid clock %q", raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("clinic: invalid clock %q", raw)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("clinic: invalid clock %q", raw)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	mins := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
