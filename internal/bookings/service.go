package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geekyuvi069/CureLink/internal/appointments"
	"github.com/geekyuvi069/CureLink/internal/calendar"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	"github.com/geekyuvi069/CureLink/internal/config"
	"github.com/geekyuvi069/CureLink/internal/notify"
	"github.com/geekyuvi069/CureLink/internal/observability/metrics"
	"github.com/geekyuvi069/CureLink/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var bookingsTracer = otel.Tracer("curelink.internal.bookings")

var (
	// ErrInvalidTime is returned when the requested start time cannot be parsed.
	ErrInvalidTime = errors.New("bookings: invalid appointment time")
	// ErrInvalidPatient is returned when patient name or email is missing.
	ErrInvalidPatient = errors.New("bookings: patient name and email are required")
	// ErrSlotTaken is returned when a non-cancelled appointment already holds the slot.
	ErrSlotTaken = errors.New("bookings: slot already taken")
)

// Request is a booking attempt as received from a tool call.
type Request struct {
	DoctorID     int64
	PatientName  string
	PatientEmail string
	StartTime    string
	Reason       string
}

// EffectOutcome records how one post-commit side effect went.
type EffectOutcome struct {
	Name       string
	Outcome    string // "ok", "skipped", "simulated" or "failed"
	Annotation string
	Err        error
}

// Booked is a committed appointment plus side-effect results.
type Booked struct {
	Appointment  appointments.Appointment
	DoctorName   string
	CalendarLink string
	Message      string
	Effects      []EffectOutcome
}

// Notifier delivers the doctor-facing booking notice.
type Notifier interface {
	Notify(ctx context.Context, recipient, message, channel string) notify.Delivery
}

// Service creates appointments and runs best-effort side effects.
type Service struct {
	dir      clinic.Directory
	repo     appointments.Repository
	calendar calendar.Client
	email    notify.EmailSender
	notifier Notifier
	loc      *time.Location
	duration time.Duration
	metrics  *metrics.AgentMetrics
	logger   *logging.Logger
}

// Config wires the booking service collaborators.
type Config struct {
	Directory    clinic.Directory
	Repository   appointments.Repository
	Calendar     calendar.Client
	Email        notify.EmailSender
	Notifier     Notifier
	Location     *time.Location
	SlotDuration time.Duration
	Metrics      *metrics.AgentMetrics
	Logger       *logging.Logger
}

// NewService constructs a bookings service.
func NewService(cfg Config) *Service {
	if cfg.Directory == nil || cfg.Repository == nil {
		panic("bookings: directory and repository required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Calendar == nil {
		cfg.Calendar = calendar.Disabled{}
	}
	if cfg.Email == nil {
		cfg.Email = notify.NewStubEmailSender(cfg.Logger)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewDispatcher("", cfg.Logger)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = 30 * time.Minute
	}
	return &Service{
		dir:      cfg.Directory,
		repo:     cfg.Repository,
		calendar: cfg.Calendar,
		email:    cfg.Email,
		notifier: cfg.Notifier,
		loc:      cfg.Location,
		duration: cfg.SlotDuration,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Book validates and inserts an appointment, then runs calendar, email and
// doctor notification in order. The slot check and the insert are separate
// statements, so two concurrent requests for one slot can both succeed.
func (s *Service) Book(ctx context.Context, req Request) (*Booked, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.book")
	defer span.End()
	span.SetAttributes(attribute.Int64("doctor.id", req.DoctorID))

	start, err := ParseStartTime(req.StartTime, s.loc)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.PatientName)
	email := strings.TrimSpace(req.PatientEmail)
	if name == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidPatient
	}

	doc, err := s.dir.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveAt(ctx, doc.ID, start)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: conflict check: %w", err)
	}
	if existing != nil {
		return nil, ErrSlotTaken
	}

	appt := &appointments.Appointment{
		DoctorID:     doc.ID,
		PatientName:  name,
		PatientEmail: email,
		StartTime:    start,
		Reason:       strings.TrimSpace(req.Reason),
		Status:       appointments.StatusScheduled,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: create: %w", err)
	}
	s.logger.Info("appointment booked", "appointment_id", appt.ID, "doctor_id", doc.ID, "start", start.Format(time.RFC3339))

	booked := &Booked{Appointment: *appt, DoctorName: doc.Name}
	run := &effectRun{svc: s, doctor: doc, booked: booked}
	for _, effect := range s.sideEffects() {
		outcome := effect.run(ctx, run)
		outcome.Name = effect.name
		if outcome.Err != nil {
			s.logger.Warn("booking side effect failed", "effect", effect.name, "appointment_id", appt.ID, "error", outcome.Err)
		}
		s.metrics.ObserveSideEffect(effect.name, outcome.Outcome)
		booked.Effects = append(booked.Effects, outcome)
	}

	var msg strings.Builder
	msg.WriteString("Appointment booked successfully.")
	for _, eff := range booked.Effects {
		if eff.Annotation != "" {
			msg.WriteString(" ")
			msg.WriteString(eff.Annotation)
		}
	}
	booked.Message = msg.String()
	return booked, nil
}

type effectRun struct {
	svc    *Service
	doctor *clinic.Doctor
	booked *Booked
}

func (r *effectRun) localTime() string {
	return r.booked.Appointment.StartTime.In(r.svc.loc).Format("2006-01-02 15:04")
}

type sideEffect struct {
	name string
	run  func(ctx context.Context, r *effectRun) EffectOutcome
}

func (s *Service) sideEffects() []sideEffect {
	return []sideEffect{
		{name: "calendar", run: addToCalendar},
		{name: "email", run: sendConfirmation},
		{name: "notification", run: notifyDoctor},
	}
}

func addToCalendar(ctx context.Context, r *effectRun) EffectOutcome {
	appt := r.booked.Appointment
	created, err := r.svc.calendar.CreateEvent(ctx, calendar.Event{
		Summary:       fmt.Sprintf("Appointment with %s - %s", r.doctor.Name, appt.PatientName),
		Description:   appt.Reason,
		Start:         appt.StartTime.In(r.svc.loc),
		End:           appt.StartTime.In(r.svc.loc).Add(r.svc.duration),
		AttendeeEmail: appt.PatientEmail,
	})
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		return EffectOutcome{Outcome: "skipped", Annotation: "(Calendar sync skipped: No credentials found)"}
	case err != nil:
		return EffectOutcome{Outcome: "failed", Annotation: "(Calendar sync failed.)", Err: err}
	case created == nil || created.Link == "":
		return EffectOutcome{Outcome: "failed", Annotation: "(Calendar sync failed.)", Err: errors.New("calendar returned no link")}
	}

	r.booked.CalendarLink = created.Link
	if err := r.svc.repo.SetCalendarRef(ctx, appt.ID, created.ID); err != nil {
		r.svc.logger.Warn("failed to store calendar reference", "appointment_id", appt.ID, "error", err)
	} else {
		r.booked.Appointment.CalendarRef = created.ID
	}
	return EffectOutcome{Outcome: "ok", Annotation: "Added to Google Calendar: " + created.Link}
}

func sendConfirmation(ctx context.Context, r *effectRun) EffectOutcome {
	appt := r.booked.Appointment
	msg := notify.ConfirmationEmail(notify.AppointmentConfirmation{
		PatientName:  appt.PatientName,
		PatientEmail: appt.PatientEmail,
		DoctorName:   r.doctor.Name,
		When:         r.localTime(),
		Reason:       appt.Reason,
		CalendarLink: r.booked.CalendarLink,
	})
	if err := r.svc.email.Send(ctx, msg); err != nil {
		return EffectOutcome{Outcome: "failed", Annotation: "(Email delivery failed. Please check mail settings.)", Err: err}
	}
	if notify.IsSimulated(r.svc.email) {
		return EffectOutcome{Outcome: "simulated", Annotation: "(Email simulation active: No mail credentials found.)"}
	}
	return EffectOutcome{Outcome: "ok", Annotation: "Confirmation email sent successfully."}
}

func notifyDoctor(ctx context.Context, r *effectRun) EffectOutcome {
	appt := r.booked.Appointment
	reason := appt.Reason
	if reason == "" {
		reason = "Not specified"
	}
	message := fmt.Sprintf("*New appointment scheduled!*\n• *Patient:* %s\n• *Time:* %s\n• *Reason:* %s",
		appt.PatientName, r.localTime(), reason)

	delivery := r.svc.notifier.Notify(ctx, r.doctor.Name, message, notify.DefaultChannel)
	switch delivery.Status {
	case notify.Delivered:
		return EffectOutcome{Outcome: "ok", Annotation: "Doctor notified."}
	case notify.Mocked:
		return EffectOutcome{Outcome: "simulated"}
	default:
		return EffectOutcome{Outcome: "failed", Annotation: "(Doctor notification failed.)", Err: errors.New(delivery.Error)}
	}
}
