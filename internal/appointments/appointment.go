package appointments

import (
	"context"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Appointment is a booked visit. StartTime is stored as an absolute instant.
type Appointment struct {
	ID           int64     `json:"id"`
	DoctorID     int64     `json:"doctor_id"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email"`
	StartTime    time.Time `json:"start_time"`
	Reason       string    `json:"reason,omitempty"`
	Status       Status    `json:"status"`
	CalendarRef  string    `json:"external_calendar_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists appointments. Implementations do not enforce slot
// uniqueness; callers check with FindActiveAt before Create.
type Repository interface {
	// FindActiveAt returns the non-cancelled appointment at exactly start, or nil.
	FindActiveAt(ctx context.Context, doctorID int64, start time.Time) (*Appointment, error)
	// Create inserts appt and assigns its ID and CreatedAt.
	Create(ctx context.Context, appt *Appointment) error
	// ListActiveBetween returns non-cancelled appointments with start in [from, to).
	ListActiveBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]Appointment, error)
	// ListBetween returns appointments of any status with start in [from, to),
	// optionally restricted to reasons containing reasonFilter (case-insensitive).
	ListBetween(ctx context.Context, doctorID int64, from, to time.Time, reasonFilter string) ([]Appointment, error)
	SetCalendarRef(ctx context.Context, id int64, ref string) error
}
