package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/geekyuvi069/CureLink/internal/appointments"
	"github.com/geekyuvi069/CureLink/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Windows lists the query_type values accepted by the stats engine.
var Windows = []string{"today", "tomorrow", "yesterday", "this_week", "daily", "weekly"}

// StatsEntry is one appointment in a stats summary.
type StatsEntry struct {
	Time    string `json:"time"`
	Patient string `json:"patient"`
	Reason  string `json:"reason"`
}

// StatsSummary aggregates a doctor's appointments over a window.
type StatsSummary struct {
	DoctorName        string       `json:"doctor_name"`
	Period            string       `json:"period"`
	TotalAppointments int          `json:"total_appointments"`
	Appointments      []StatsEntry `json:"appointments"`
}

// StatsEngine computes per-doctor appointment summaries.
type StatsEngine struct {
	dir    Directory
	appts  appointments.Repository
	loc    *time.Location
	now    func() time.Time
	tracer trace.Tracer
}

// StatsOption customizes a StatsEngine.
type StatsOption func(*StatsEngine)

// WithStatsClock overrides the clock used to resolve relative windows.
func WithStatsClock(now func() time.Time) StatsOption {
	return func(e *StatsEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewStatsEngine creates a stats engine reporting in the clinic's zone.
func NewStatsEngine(dir Directory, appts appointments.Repository, loc *time.Location, opts ...StatsOption) *StatsEngine {
	if dir == nil || appts == nil {
		panic("clinic: stats engine requires a directory and appointment repository")
	}
	if loc == nil {
		loc = time.UTC
	}
	e := &StatsEngine{
		dir:    dir,
		appts:  appts,
		loc:    loc,
		now:    time.Now,
		tracer: otel.Tracer("curelink.internal.clinic"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveWindow turns a named window into a half-open [start, end) range of
// clinic-local days. Weeks run Monday through Sunday.
func ResolveWindow(window string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(strings.TrimSpace(window)) {
	case "today", "daily":
		return today, today.AddDate(0, 0, 1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), today.AddDate(0, 0, 2), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), today, nil
	case "this_week", "weekly":
		monday := today.AddDate(0, 0, -Weekday(today))
		return monday, monday.AddDate(0, 0, 7), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}
}

// Stats summarizes the resolved doctor's appointments in window, optionally
// restricted to reasons containing filter.
func (e *StatsEngine) Stats(ctx context.Context, doctorQuery, window, filter string) (*StatsSummary, error) {
	ctx, span := e.tracer.Start(ctx, "clinic.stats")
	defer span.End()
	span.SetAttributes(attribute.String("stats.window", window))

	doc, err := ResolveDoctor(ctx, e.dir, doctorQuery)
	if err != nil {
		return nil, err
	}

	start, end, err := ResolveWindow(window, e.now(), e.loc)
	if err != nil {
		return nil, err
	}

	rows, err := e.appts.ListBetween(ctx, doc.ID, start, end, strings.TrimSpace(filter))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("clinic: stats: %w", err)
	}

	summary := &StatsSummary{
		DoctorName:        doc.Name,
		Period:            window,
		TotalAppointments: len(rows),
		Appointments:      make([]StatsEntry, 0, len(rows)),
	}
	for _, appt := range rows {
		summary.Appointments = append(summary.Appointments, StatsEntry{
			Time:    appt.StartTime.In(e.loc).Format("15:04"),
			Patient: appt.PatientName,
			Reason:  appt.Reason,
		})
	}
	return summary, nil
}

// StatsHandler provides HTTP endpoints for doctor statistics.
type StatsHandler struct {
	engine *StatsEngine
	logger *logging.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(engine *StatsEngine, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{
		engine: engine,
		logger: logger,
	}
}

// GetStats returns an appointment summary for a doctor.
// GET /api/doctors/stats?doctor=<name>&window=<query_type>&filter=<reason>
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctor := strings.TrimSpace(q.Get("doctor"))
	if doctor == "" {
		writeJSONError(w, http.StatusBadRequest, "doctor required")
		return
	}
	window := q.Get("window")
	if window == "" {
		window = "today"
	}

	summary, err := h.engine.Stats(r.Context(), doctor, window, q.Get("filter"))
	switch {
	case errors.Is(err, ErrDoctorNotFound):
		writeJSONError(w, http.StatusNotFound, "doctor not found")
		return
	case errors.Is(err, ErrInvalidWindow):
		writeJSONError(w, http.StatusBadRequest, "invalid window")
		return
	case err != nil:
		h.logger.Error("failed to compute doctor stats", "doctor", doctor, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// DoctorsHandler lists the directory.
type DoctorsHandler struct {
	dir    Directory
	logger *logging.Logger
}

func NewDoctorsHandler(dir Directory, logger *logging.Logger) *DoctorsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DoctorsHandler{dir: dir, logger: logger}
}

// List handles GET /api/doctors?specialization=<term>.
func (h *DoctorsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := FindDoctors(r.Context(), h.dir, r.URL.Query().Get("specialization"))
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if docs == nil {
		docs = []Doctor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": docs, "count": len(docs)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
