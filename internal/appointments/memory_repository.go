package appointments

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// InMemoryRepository keeps appointments in insertion order.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   []Appointment
	now    func() time.Time
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, now: time.Now}
}

func (r *InMemoryRepository) FindActiveAt(_ context.Context, doctorID int64, start time.Time) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.rows {
		if a.DoctorID == doctorID && a.Status != StatusCancelled && a.StartTime.Equal(start) {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (r *InMemoryRepository) Create(_ context.Context, appt *Appointment) error {
	if appt == nil {
		return fmt.Errorf("appointments: nil appointment")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	appt.ID = r.nextID
	r.nextID++
	if appt.Status == "" {
		appt.Status = StatusScheduled
	}
	appt.CreatedAt = r.now().UTC()
	r.rows = append(r.rows, *appt)
	return nil
}

func (r *InMemoryRepository) ListActiveBetween(_ context.Context, doctorID int64, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, a := range r.rows {
		if a.DoctorID == doctorID && a.Status != StatusCancelled && inRange(a.StartTime, from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListBetween(_ context.Context, doctorID int64, from, to time.Time, reasonFilter string) ([]Appointment, error) {
	needle := strings.ToLower(strings.TrimSpace(reasonFilter))
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, a := range r.rows {
		if a.DoctorID != doctorID || !inRange(a.StartTime, from, to) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(a.Reason), needle) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *InMemoryRepository) SetCalendarRef(_ context.Context, id int64, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].CalendarRef = ref
			return nil
		}
	}
	return fmt.Errorf("appointments: appointment %d not found", id)
}

// SetStatus changes an appointment's status. Status transitions belong to
// clinic staff tooling; the booking flow never calls this.
func (r *InMemoryRepository) SetStatus(id int64, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("appointments: appointment %d not found", id)
}

// All returns a snapshot of every stored appointment.
func (r *InMemoryRepository) All() []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Appointment, len(r.rows))
	copy(out, r.rows)
	return out
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

var _ Repository = (*InMemoryRepository)(nil)
