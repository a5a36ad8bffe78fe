package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geekyuvi069/CureLink/internal/appointments"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidDate is returned when the requested date is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("availability: invalid date format, use YYYY-MM-DD")

// NotWorkingMessage explains an empty result for a day without templates.
const NotWorkingMessage = "Doctor is not working on this day."

// Result lists the open slots for one doctor on one date.
type Result struct {
	DoctorID   int64    `json:"doctor_id"`
	DoctorName string   `json:"doctor_name"`
	Date       string   `json:"date"`
	Slots      []string `json:"available_slots"`
	// Message is set when the doctor has no template for the weekday.
	Message string `json:"message,omitempty"`
}

// Engine computes free slots from weekly templates minus existing bookings.
type Engine struct {
	dir    clinic.Directory
	appts  appointments.Repository
	loc    *time.Location
	tracer trace.Tracer
}

// NewEngine creates an engine that interprets dates and booked times in loc.
func NewEngine(dir clinic.Directory, appts appointments.Repository, loc *time.Location) *Engine {
	if dir == nil || appts == nil {
		panic("availability: directory and appointment repository are required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		dir:    dir,
		appts:  appts,
		loc:    loc,
		tracer: otel.Tracer("curelink.internal.availability"),
	}
}

// Check returns the open slots for the doctor matching doctorQuery on date.
func (e *Engine) Check(ctx context.Context, doctorQuery, date string) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "availability.check")
	defer span.End()

	doc, err := clinic.ResolveDoctor(ctx, e.dir, doctorQuery)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("doctor.id", doc.ID))

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	result := &Result{
		DoctorID:   doc.ID,
		DoctorName: doc.Name,
		Date:       day.Format("2006-01-02"),
		Slots:      []string{},
	}

	templates, err := e.dir.Templates(ctx, doc.ID, clinic.Weekday(day))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: templates: %w", err)
	}
	if len(templates) == 0 {
		result.Message = NotWorkingMessage
		return result, nil
	}

	booked, err := e.appts.ListActiveBetween(ctx, doc.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("availability: booked appointments: %w", err)
	}
	taken := make(map[string]struct{}, len(booked))
	for _, appt := range booked {
		taken[appt.StartTime.In(e.loc).Format("15:04")] = struct{}{}
	}

	for _, tpl := range templates {
		for _, slot := range CandidateSlots(tpl) {
			if _, ok := taken[slot]; ok {
				continue
			}
			result.Slots = append(result.Slots, slot)
		}
	}
	return result, nil
}

// CandidateSlots expands a template into slot starts, keeping every start
// whose full slot ends at or before the template end.
func CandidateSlots(tpl clinic.AvailabilityTemplate) []string {
	if tpl.SlotDuration <= 0 {
		return nil
	}
	var out []string
	for start := tpl.Start; start+tpl.SlotDuration <= tpl.End; start += tpl.SlotDuration {
		out = append(out, clinic.FormatClock(start))
	}
	return out
}

// FilterByPreference narrows slots to a part of the day: "morning" (before
// 12:00), "afternoon" (12:00-17:00) or "evening" (17:00 on). Other values
// leave slots unchanged.
func FilterByPreference(slots []string, preference string) []string {
	var lo, hi string
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case "morning":
		lo, hi = "00:00", "12:00"
	case "afternoon":
		lo, hi = "12:00", "17:00"
	case "evening":
		lo, hi = "17:00", "24:00"
	default:
		return slots
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s >= lo && s < hi {
			out = append(out, s)
		}
	}
	return out
}
