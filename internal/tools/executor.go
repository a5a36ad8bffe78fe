package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geekyuvi069/CureLink/internal/availability"
	"github.com/geekyuvi069/CureLink/internal/bookings"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	"github.com/geekyuvi069/CureLink/internal/notify"
	"github.com/geekyuvi069/CureLink/internal/observability/metrics"
	"github.com/geekyuvi069/CureLink/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AvailabilityChecker computes open slots.
type AvailabilityChecker interface {
	Check(ctx context.Context, doctorQuery, date string) (*availability.Result, error)
}

// Booker books appointments.
type Booker interface {
	Book(ctx context.Context, req bookings.Request) (*bookings.Booked, error)
}

// StatsProvider summarizes appointments over a window.
type StatsProvider interface {
	Stats(ctx context.Context, doctorQuery, window, filter string) (*clinic.StatsSummary, error)
}

// Notifier delivers a message to a doctor's channel.
type Notifier interface {
	Notify(ctx context.Context, recipient, message, channel string) notify.Delivery
}

// Deps are the collaborators the executor routes commands to.
type Deps struct {
	Availability AvailabilityChecker
	Bookings     Booker
	Stats        StatsProvider
	Directory    clinic.Directory
	Notifier     Notifier
	Metrics      *metrics.AgentMetrics
	Logger       *logging.Logger
}

// Executor runs decoded commands. Every failure is reported inside the
// returned payload; Execute never returns a Go error.
type Executor struct {
	registry *Registry
	deps     Deps
	tracer   trace.Tracer
}

// NewExecutor wires an executor over the registry.
func NewExecutor(registry *Registry, deps Deps) *Executor {
	if registry == nil {
		registry = NewRegistry()
	}
	if deps.Availability == nil || deps.Bookings == nil || deps.Stats == nil || deps.Directory == nil || deps.Notifier == nil {
		panic("tools: executor dependencies are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Executor{registry: registry, deps: deps, tracer: otel.Tracer("curelink.internal.tools")}
}

// Definitions returns the advertised tool set.
func (e *Executor) Definitions() []Definition {
	return e.registry.Definitions()
}

// Execute decodes and runs one invocation.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) map[string]any {
	ctx, span := e.tracer.Start(ctx, "tools.execute")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", name))

	cmd, err := e.registry.Decode(name, args)
	if errors.Is(err, ErrUnknownTool) {
		e.deps.Logger.Warn("unknown tool requested", "tool", name)
		e.deps.Metrics.ObserveToolCall(name, "unknown")
		return map[string]any{"error": "tool not found"}
	}
	if err != nil {
		e.deps.Metrics.ObserveToolCall(name, "invalid")
		return map[string]any{"error": err.Error()}
	}

	payload, err := e.run(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		e.deps.Logger.Warn("tool execution failed", "tool", name, "error", err)
		e.deps.Metrics.ObserveToolCall(name, "error")
		return map[string]any{"error": err.Error()}
	}
	outcome := "ok"
	if _, hasErr := payload["error"]; hasErr {
		outcome = "failed"
	}
	e.deps.Metrics.ObserveToolCall(name, outcome)
	return payload
}

func (e *Executor) run(ctx context.Context, cmd Command) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, err = nil, fmt.Errorf("tools: %s panicked: %v", cmd.ToolName(), r)
		}
	}()

	switch c := cmd.(type) {
	case CheckAvailability:
		return e.checkAvailability(ctx, c)
	case BookAppointment:
		return e.bookAppointment(ctx, c)
	case AppointmentStats:
		return e.appointmentStats(ctx, c)
	case ListDoctors:
		return e.listDoctors(ctx, c)
	case NotifyDoctor:
		return e.notifyDoctor(ctx, c)
	default:
		return nil, fmt.Errorf("tools: unhandled command %T", cmd)
	}
}

func (e *Executor) checkAvailability(ctx context.Context, c CheckAvailability) (map[string]any, error) {
	res, err := e.deps.Availability.Check(ctx, c.DoctorName, c.Date)
	switch {
	case errors.Is(err, clinic.ErrDoctorNotFound):
		return map[string]any{"error": "Doctor not found"}, nil
	case errors.Is(err, availability.ErrInvalidDate):
		return map[string]any{"error": "Invalid date format. Use YYYY-MM-DD."}, nil
	case err != nil:
		return nil, err
	}
	if res.Message != "" {
		return toPayload(map[string]any{
			"doctor":          res.DoctorName,
			"date":            res.Date,
			"available_slots": []string{},
			"message":         res.Message,
		})
	}
	res.Slots = availability.FilterByPreference(res.Slots, c.TimePreference)
	if res.Slots == nil {
		res.Slots = []string{}
	}
	return toPayload(res)
}

func (e *Executor) bookAppointment(ctx context.Context, c BookAppointment) (map[string]any, error) {
	booked, err := e.deps.Bookings.Book(ctx, bookings.Request{
		DoctorID:     c.DoctorID,
		PatientName:  c.PatientName,
		PatientEmail: c.PatientEmail,
		StartTime:    c.AppointmentTime,
		Reason:       c.Reason,
	})
	switch {
	case errors.Is(err, bookings.ErrSlotTaken):
		return failed("Slot already taken."), nil
	case errors.Is(err, bookings.ErrInvalidTime):
		return failed("Invalid time format. Use ISO format."), nil
	case errors.Is(err, bookings.ErrInvalidPatient):
		return failed("Patient name and a valid email are required."), nil
	case errors.Is(err, clinic.ErrDoctorNotFound):
		return failed("Doctor not found"), nil
	case err != nil:
		return nil, err
	}
	payload := map[string]any{
		"status":         "success",
		"appointment_id": booked.Appointment.ID,
		"doctor_name":    booked.DoctorName,
		"message":        booked.Message,
	}
	if booked.CalendarLink != "" {
		payload["calendar_link"] = booked.CalendarLink
	}
	return toPayload(payload)
}

func (e *Executor) appointmentStats(ctx context.Context, c AppointmentStats) (map[string]any, error) {
	summary, err := e.deps.Stats.Stats(ctx, c.DoctorName, c.QueryType, c.FilterBy)
	switch {
	case errors.Is(err, clinic.ErrDoctorNotFound):
		return map[string]any{"error": "Doctor not found"}, nil
	case errors.Is(err, clinic.ErrInvalidWindow):
		return map[string]any{"error": "Invalid query_type"}, nil
	case err != nil:
		return nil, err
	}
	return toPayload(summary)
}

func (e *Executor) listDoctors(ctx context.Context, c ListDoctors) (map[string]any, error) {
	docs, err := clinic.FindDoctors(ctx, e.deps.Directory, c.Specialization)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		list = append(list, map[string]any{
			"id":             d.ID,
			"name":           d.Name,
			"specialization": d.Specialization,
			"email":          d.Email,
		})
	}
	return toPayload(map[string]any{"doctors": list, "count": len(list)})
}

func (e *Executor) notifyDoctor(ctx context.Context, c NotifyDoctor) (map[string]any, error) {
	doc, err := clinic.ResolveDoctor(ctx, e.deps.Directory, c.DoctorName)
	if errors.Is(err, clinic.ErrDoctorNotFound) {
		return failed("Doctor not found"), nil
	}
	if err != nil {
		return nil, err
	}
	delivery := e.deps.Notifier.Notify(ctx, doc.Name, c.Message, notify.DefaultChannel)
	return toPayload(delivery.Payload())
}

func failed(msg string) map[string]any {
	return map[string]any{"status": "failed", "error": msg}
}

// toPayload round-trips v through JSON so payloads hold only JSON-native
// values and survive session persistence unchanged.
func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("tools: encode payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("tools: decode payload: %w", err)
	}
	return out, nil
}
