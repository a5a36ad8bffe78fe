package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geekyuvi069/CureLink/internal/appointments"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("UTC+05:30", 5*3600+30*60)

func morningTemplate(doctorID int64, weekday int) clinic.AvailabilityTemplate {
	return clinic.AvailabilityTemplate{
		DoctorID:     doctorID,
		Weekday:      weekday,
		Start:        9 * time.Hour,
		End:          12 * time.Hour,
		SlotDuration: 30 * time.Minute,
	}
}

func fixture() (*Engine, *clinic.MemoryDirectory, *appointments.InMemoryRepository) {
	dir := clinic.NewMemoryDirectory()
	dir.AddDoctor(clinic.Doctor{Name: "Dr. Rajesh Ahuja", Specialization: "General Physician"})
	dir.AddTemplate(morningTemplate(1, 0))
	repo := appointments.NewInMemoryRepository()
	return NewEngine(dir, repo, ist), dir, repo
}

func TestCandidateSlots(t *testing.T) {
	slots := CandidateSlots(morningTemplate(1, 0))
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, slots)

	partial := clinic.AvailabilityTemplate{Start: 9 * time.Hour, End: 10*time.Hour + 45*time.Minute, SlotDuration: 30 * time.Minute}
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, CandidateSlots(partial))

	assert.Nil(t, CandidateSlots(clinic.AvailabilityTemplate{Start: 9 * time.Hour, End: 10 * time.Hour}))
}

func TestCheck_MondayNoBookings(t *testing.T) {
	engine, _, _ := fixture()

	res, err := engine.Check(context.Background(), "Ahuja", "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DoctorID)
	assert.Equal(t, "Dr. Rajesh Ahuja", res.DoctorName)
	assert.Equal(t, "2025-03-03", res.Date)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, res.Slots)
	assert.Empty(t, res.Message)
}

func TestCheck_ExcludesBookedTimesInClinicZone(t *testing.T) {
	ctx := context.Background()
	engine, _, repo := fixture()

	// 10:00 IST stored as 04:30 UTC.
	require.NoError(t, repo.Create(ctx, &appointments.Appointment{
		DoctorID:  1,
		StartTime: time.Date(2025, 3, 3, 4, 30, 0, 0, time.UTC),
	}))
	// Cancelled bookings do not block a slot.
	cancelled := &appointments.Appointment{DoctorID: 1, StartTime: time.Date(2025, 3, 3, 11, 0, 0, 0, ist)}
	require.NoError(t, repo.Create(ctx, cancelled))
	require.NoError(t, repo.SetStatus(cancelled.ID, appointments.StatusCancelled))

	res, err := engine.Check(ctx, "Dr. Ahuja", "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, res.Slots)

	active, err := repo.ListActiveBetween(ctx, 1, time.Date(2025, 3, 3, 0, 0, 0, 0, ist), time.Date(2025, 3, 4, 0, 0, 0, 0, ist))
	require.NoError(t, err)
	for _, appt := range active {
		assert.NotContains(t, res.Slots, appt.StartTime.In(ist).Format("15:04"))
	}
}

func TestCheck_NoTemplateIsNotAnError(t *testing.T) {
	engine, _, _ := fixture()

	res, err := engine.Check(context.Background(), "Ahuja", "2025-03-04")
	require.NoError(t, err)
	assert.Empty(t, res.Slots)
	assert.NotNil(t, res.Slots)
	assert.Equal(t, NotWorkingMessage, res.Message)
}

func TestCheck_Errors(t *testing.T) {
	engine, _, _ := fixture()

	_, err := engine.Check(context.Background(), "Dr. Nobody", "2025-03-03")
	assert.True(t, errors.Is(err, clinic.ErrDoctorNotFound))

	_, err = engine.Check(context.Background(), "Ahuja", "03/03/2025")
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestCheck_MultipleTemplatesKeepGenerationOrder(t *testing.T) {
	engine, dir, _ := fixture()
	dir.AddTemplate(clinic.AvailabilityTemplate{DoctorID: 1, Weekday: 0, Start: 14 * time.Hour, End: 15 * time.Hour, SlotDuration: 20 * time.Minute})

	res, err := engine.Check(context.Background(), "Ahuja", "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "14:00", "14:20", "14:40"}, res.Slots)
}

func TestFilterByPreference(t *testing.T) {
	slots := []string{"09:00", "11:30", "12:00", "16:30", "17:00", "18:30"}
	assert.Equal(t, []string{"09:00", "11:30"}, FilterByPreference(slots, "morning"))
	assert.Equal(t, []string{"12:00", "16:30"}, FilterByPreference(slots, "Afternoon"))
	assert.Equal(t, []string{"17:00", "18:30"}, FilterByPreference(slots, "evening"))
	assert.Equal(t, slots, FilterByPreference(slots, ""))
}
