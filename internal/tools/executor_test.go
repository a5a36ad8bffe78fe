package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geekyuvi069/CureLink/internal/appointments"
	"github.com/geekyuvi069/CureLink/internal/availability"
	"github.com/geekyuvi069/CureLink/internal/bookings"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	"github.com/geekyuvi069/CureLink/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fixture struct {
	exec  *Executor
	repo  *appointments.InMemoryRepository
	ahuja clinic.Doctor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := clinic.NewMemoryDirectory()
	ahuja := dir.AddDoctor(clinic.Doctor{Name: "Dr. Rajesh Ahuja", Email: "ahuja@curelink.test", Specialization: "Cardiologist"})
	dir.AddDoctor(clinic.Doctor{Name: "Dr. Meera Iyer", Email: "iyer@curelink.test", Specialization: "Dentist"})
	dir.AddTemplate(clinic.AvailabilityTemplate{DoctorID: ahuja.ID, Weekday: 0, Start: 9 * time.Hour, End: 12 * time.Hour, SlotDuration: 30 * time.Minute})

	repo := appointments.NewInMemoryRepository()
	now := func() time.Time { return time.Date(2025, 3, 3, 8, 0, 0, 0, ist) }
	dispatcher := notify.NewDispatcher("", nil, notify.WithClock(now))

	exec := NewExecutor(NewRegistry(), Deps{
		Availability: availability.NewEngine(dir, repo, ist),
		Bookings:     bookings.NewService(bookings.Config{Directory: dir, Repository: repo, Notifier: dispatcher, Location: ist}),
		Stats:        clinic.NewStatsEngine(dir, repo, ist, clinic.WithStatsClock(now)),
		Directory:    dir,
		Notifier:     dispatcher,
	})
	return fixture{exec: exec, repo: repo, ahuja: ahuja}
}

func TestExecute_UnknownTool(t *testing.T) {
	f := newFixture(t)
	got := f.exec.Execute(context.Background(), "cancel_appointment", map[string]any{"id": 1})
	assert.Equal(t, map[string]any{"error": "tool not found"}, got)
}

func TestExecute_InvalidArgumentsBecomePayload(t *testing.T) {
	f := newFixture(t)
	got := f.exec.Execute(context.Background(), NameCheckAvailability, map[string]any{"doctor_name": "Ahuja"})
	assert.Contains(t, got["error"], "date")
}

func TestExecute_CheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.exec.Execute(ctx, NameCheckAvailability, map[string]any{"doctor_name": "Dr. Ahuja", "date": "2025-03-03"})
	assert.Equal(t, "Dr. Rajesh Ahuja", got["doctor_name"])
	assert.Equal(t, []any{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, got["available_slots"])

	got = f.exec.Execute(ctx, NameCheckAvailability, map[string]any{"doctor_name": "Ahuja", "date": "2025-03-04"})
	assert.Equal(t, availability.NotWorkingMessage, got["message"])
	assert.Equal(t, []any{}, got["available_slots"])

	got = f.exec.Execute(ctx, NameCheckAvailability, map[string]any{"doctor_name": "Dr. Nobody", "date": "2025-03-03"})
	assert.Equal(t, "Doctor not found", got["error"])

	got = f.exec.Execute(ctx, NameCheckAvailability, map[string]any{"doctor_name": "Ahuja", "date": "03-03-2025"})
	assert.Equal(t, "Invalid date format. Use YYYY-MM-DD.", got["error"])
}

func TestExecute_BookThenConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	args := map[string]any{
		"doctor_id":        float64(f.ahuja.ID),
		"patient_name":     "Asha",
		"patient_email":    "asha@example.com",
		"appointment_time": "2025-03-03T10:00:00",
		"reason":           "fever",
	}

	got := f.exec.Execute(ctx, NameBookAppointment, args)
	assert.Equal(t, "success", got["status"])
	assert.Contains(t, got["message"], "Appointment booked successfully.")
	assert.NotContains(t, got, "calendar_link")

	got = f.exec.Execute(ctx, NameBookAppointment, args)
	assert.Equal(t, map[string]any{"status": "failed", "error": "Slot already taken."}, got)
	assert.Len(t, f.repo.All(), 1)

	slots := f.exec.Execute(ctx, NameCheckAvailability, map[string]any{"doctor_name": "Ahuja", "date": "2025-03-03", "time_preference": "morning"})
	assert.NotContains(t, slots["available_slots"], "10:00")
	assert.Len(t, slots["available_slots"], 5)
}

func TestExecute_StatsAndListDoctors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &appointments.Appointment{
		DoctorID: f.ahuja.ID, PatientName: "Asha", PatientEmail: "a@x.io",
		StartTime: time.Date(2025, 3, 3, 9, 0, 0, 0, ist), Reason: "Fever",
	}))

	stats := f.exec.Execute(ctx, NameAppointmentStats, map[string]any{"doctor_name": "Ahuja", "query_type": "today"})
	assert.Equal(t, float64(1), stats["total_appointments"])

	stats = f.exec.Execute(ctx, NameAppointmentStats, map[string]any{"doctor_name": "Dr. Nobody", "query_type": "today"})
	assert.Equal(t, "Doctor not found", stats["error"])

	list := f.exec.Execute(ctx, NameListDoctors, map[string]any{"specialization": "teeth"})
	assert.Equal(t, float64(1), list["count"])
	doctors := list["doctors"].([]any)
	assert.Equal(t, "Dr. Meera Iyer", doctors[0].(map[string]any)["name"])

	all := f.exec.Execute(ctx, NameListDoctors, map[string]any{})
	assert.Equal(t, float64(2), all["count"])
}

func TestExecute_NotifyDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.exec.Execute(ctx, NameNotifyDoctor, map[string]any{"doctor_name": "Iyer", "message": "Room 4 closed"})
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "mock", got["mode"])
	assert.Equal(t, "Dr. Meera Iyer", got["recipient"])

	got = f.exec.Execute(ctx, NameNotifyDoctor, map[string]any{"doctor_name": "Nobody Here", "message": "hi"})
	assert.Equal(t, "failed", got["status"])
}

type failingStats struct{}

func (failingStats) Stats(context.Context, string, string, string) (*clinic.StatsSummary, error) {
	return nil, errors.New("connection reset")
}

func TestExecute_OperationErrorsAreCaptured(t *testing.T) {
	f := newFixture(t)
	f.exec.deps.Stats = failingStats{}

	got := f.exec.Execute(context.Background(), NameAppointmentStats, map[string]any{"doctor_name": "Ahuja", "query_type": "today"})
	assert.Equal(t, map[string]any{"error": "connection reset"}, got)
}

type panickingStats struct{}

func (panickingStats) Stats(context.Context, string, string, string) (*clinic.StatsSummary, error) {
	panic("nil summary")
}

func TestExecute_PanicsAreCaptured(t *testing.T) {
	f := newFixture(t)
	f.exec.deps.Stats = panickingStats{}

	var got map[string]any
	require.NotPanics(t, func() {
		got = f.exec.Execute(context.Background(), NameAppointmentStats, map[string]any{"doctor_name": "Ahuja", "query_type": "today"})
	})
	assert.Contains(t, got["error"], "get_appointment_stats panicked: nil summary")
}

// Every payload is handed to the Gemini client as a structpb.Struct, which
// only accepts JSON-native values.
func TestExecute_PayloadsConvertToStruct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := map[string]any{
		"doctor_id":        float64(f.ahuja.ID),
		"patient_name":     "Asha",
		"patient_email":    "asha@example.com",
		"appointment_time": "2025-03-03T10:00",
	}

	cases := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"slots", NameCheckAvailability, map[string]any{"doctor_name": "Ahuja", "date": "2025-03-03"}},
		{"not working", NameCheckAvailability, map[string]any{"doctor_name": "Ahuja", "date": "2025-03-04"}},
		{"unknown doctor", NameCheckAvailability, map[string]any{"doctor_name": "Dr. Nobody", "date": "2025-03-03"}},
		{"bad date", NameCheckAvailability, map[string]any{"doctor_name": "Ahuja", "date": "tomorrow"}},
		{"booked", NameBookAppointment, book},
		{"slot taken", NameBookAppointment, book},
		{"bad time", NameBookAppointment, map[string]any{"doctor_id": float64(f.ahuja.ID), "patient_name": "A", "patient_email": "a@x.io", "appointment_time": "soon"}},
		{"stats", NameAppointmentStats, map[string]any{"doctor_name": "Ahuja", "query_type": "today"}},
		{"bad window", NameAppointmentStats, map[string]any{"doctor_name": "Ahuja", "query_type": "monthly"}},
		{"list", NameListDoctors, map[string]any{}},
		{"notify", NameNotifyDoctor, map[string]any{"doctor_name": "Iyer", "message": "Room 4 closed\nUse room 5"}},
		{"notify unknown", NameNotifyDoctor, map[string]any{"doctor_name": "Nobody Here", "message": "hi"}},
		{"unknown tool", "cancel_appointment", map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := f.exec.Execute(ctx, tc.tool, tc.args)
			_, err := structpb.NewStruct(payload)
			assert.NoError(t, err, "payload: %#v", payload)
		})
	}
}
