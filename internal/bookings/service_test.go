package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geekyuvi069/CureLink/internal/appointments"
	"github.com/geekyuvi069/CureLink/internal/calendar"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	"github.com/geekyuvi069/CureLink/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type fakeCalendar struct {
	created *calendar.Created
	err     error
	events  []calendar.Event
}

func (f *fakeCalendar) CreateEvent(_ context.Context, ev calendar.Event) (*calendar.Created, error) {
	f.events = append(f.events, ev)
	return f.created, f.err
}

type recordingSender struct {
	sent []notify.EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg notify.EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type recordingNotifier struct {
	status   notify.DeliveryStatus
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, recipient, message, channel string) notify.Delivery {
	r.messages = append(r.messages, message)
	status := r.status
	if status == "" {
		status = notify.Mocked
	}
	return notify.Delivery{Status: status, Recipient: recipient, Channel: channel}
}

func newTestService(t *testing.T, cal calendar.Client, email notify.EmailSender, n Notifier) (*Service, *appointments.InMemoryRepository, clinic.Doctor) {
	t.Helper()
	dir := clinic.NewMemoryDirectory()
	doc := dir.AddDoctor(clinic.Doctor{Name: "Dr. Rajesh Ahuja", Email: "ahuja@curelink.test", Specialization: "Cardiologist"})
	repo := appointments.NewInMemoryRepository()
	svc := NewService(Config{
		Directory:  dir,
		Repository: repo,
		Calendar:   cal,
		Email:      email,
		Notifier:   n,
		Location:   ist,
	})
	return svc, repo, doc
}

func TestParseStartTime(t *testing.T) {
	got, err := ParseStartTime("2025-03-03T10:00", ist)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, ist).Unix(), got.Unix())

	got, err = ParseStartTime("2025-03-03T10:00:00", ist)
	require.NoError(t, err)
	assert.Equal(t, 10, got.In(ist).Hour())

	got, err = ParseStartTime("2025-03-03T04:30:00Z", ist)
	require.NoError(t, err)
	assert.Equal(t, "10:00", got.In(ist).Format("15:04"))

	_, err = ParseStartTime("next monday at ten", ist)
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestBook_SecondBookingConflicts(t *testing.T) {
	svc, repo, doc := newTestService(t, calendar.Disabled{}, nil, &recordingNotifier{})
	req := Request{DoctorID: doc.ID, PatientName: "Asha", PatientEmail: "asha@example.com", StartTime: "2025-03-03T10:00"}

	first, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusScheduled, first.Appointment.Status)

	_, err = svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Len(t, repo.All(), 1)
}

func TestBook_CancelledSlotCanBeRebooked(t *testing.T) {
	svc, repo, doc := newTestService(t, calendar.Disabled{}, nil, &recordingNotifier{})
	req := Request{DoctorID: doc.ID, PatientName: "Asha", PatientEmail: "asha@example.com", StartTime: "2025-03-03T10:00"}

	first, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, repo.SetStatus(first.Appointment.ID, appointments.StatusCancelled))

	_, err = svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, repo.All(), 2)
}

func TestBook_Validation(t *testing.T) {
	svc, _, doc := newTestService(t, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Book(ctx, Request{DoctorID: doc.ID, PatientName: "Asha", PatientEmail: "asha@example.com", StartTime: "03/03/2025 10am"})
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = svc.Book(ctx, Request{DoctorID: doc.ID, PatientName: " ", PatientEmail: "asha@example.com", StartTime: "2025-03-03T10:00"})
	assert.ErrorIs(t, err, ErrInvalidPatient)

	_, err = svc.Book(ctx, Request{DoctorID: 999, PatientName: "Asha", PatientEmail: "asha@example.com", StartTime: "2025-03-03T10:00"})
	assert.ErrorIs(t, err, clinic.ErrDoctorNotFound)
}

func TestBook_SideEffectAnnotations(t *testing.T) {
	cal := &fakeCalendar{created: &calendar.Created{ID: "evt-1", Link: "https://calendar.example/evt-1"}}
	mail := &recordingSender{}
	notifier := &recordingNotifier{status: notify.Delivered}
	svc, repo, doc := newTestService(t, cal, mail, notifier)

	booked, err := svc.Book(context.Background(), Request{
		DoctorID:     doc.ID,
		PatientName:  "Asha",
		PatientEmail: "asha@example.com",
		StartTime:    "2025-03-03T10:00",
		Reason:       "fever",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://calendar.example/evt-1", booked.CalendarLink)
	assert.Contains(t, booked.Message, "Appointment booked successfully.")
	assert.Contains(t, booked.Message, "Added to Google Calendar: https://calendar.example/evt-1")
	assert.Contains(t, booked.Message, "Confirmation email sent successfully.")
	require.Len(t, booked.Effects, 3)

	require.Len(t, cal.events, 1)
	assert.Equal(t, 30*time.Minute, cal.events[0].End.Sub(cal.events[0].Start))
	assert.Equal(t, "asha@example.com", cal.events[0].AttendeeEmail)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "Appointment Confirmation: Dr. Rajesh Ahuja", mail.sent[0].Subject)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "*New appointment scheduled!*")
	assert.Contains(t, notifier.messages[0], "• *Time:* 2025-03-03 10:00")
	assert.Contains(t, notifier.messages[0], "• *Reason:* fever")

	stored := repo.All()
	require.Len(t, stored, 1)
	assert.Equal(t, "evt-1", stored[0].CalendarRef)
}

func TestBook_SideEffectFailuresKeepBooking(t *testing.T) {
	cal := &fakeCalendar{err: errors.New("quota exceeded")}
	mail := &recordingSender{err: errors.New("smtp down")}
	notifier := &recordingNotifier{status: notify.Failed}
	svc, repo, doc := newTestService(t, cal, mail, notifier)

	booked, err := svc.Book(context.Background(), Request{
		DoctorID:     doc.ID,
		PatientName:  "Asha",
		PatientEmail: "asha@example.com",
		StartTime:    "2025-03-03T10:30",
	})
	require.NoError(t, err)
	assert.Empty(t, booked.CalendarLink)
	assert.Contains(t, booked.Message, "(Calendar sync failed.)")
	assert.Contains(t, booked.Message, "(Email delivery failed.")
	assert.Contains(t, booked.Message, "(Doctor notification failed.)")
	assert.Contains(t, notifier.messages[0], "• *Reason:* Not specified")
	assert.Len(t, repo.All(), 1)
}

func TestBook_UnconfiguredIntegrationsDegrade(t *testing.T) {
	svc, _, doc := newTestService(t, nil, nil, nil)

	booked, err := svc.Book(context.Background(), Request{
		DoctorID:     doc.ID,
		PatientName:  "Asha",
		PatientEmail: "asha@example.com",
		StartTime:    "2025-03-03T11:00",
	})
	require.NoError(t, err)
	assert.Contains(t, booked.Message, "(Calendar sync skipped: No credentials found)")
	assert.Contains(t, booked.Message, "(Email simulation active")
	assert.Equal(t, "skipped", booked.Effects[0].Outcome)
	assert.Equal(t, "simulated", booked.Effects[1].Outcome)
	assert.Equal(t, "simulated", booked.Effects[2].Outcome)
}

// barrierRepo holds every FindActiveAt caller until n callers have checked,
// reproducing two requests that both pass the conflict check.
type barrierRepo struct {
	appointments.Repository
	wg sync.WaitGroup
}

func (b *barrierRepo) FindActiveAt(ctx context.Context, doctorID int64, start time.Time) (*appointments.Appointment, error) {
	found, err := b.Repository.FindActiveAt(ctx, doctorID, start)
	b.wg.Done()
	b.wg.Wait()
	return found, err
}

func TestBook_ConcurrentRequestsForSameSlotBothSucceed(t *testing.T) {
	dir := clinic.NewMemoryDirectory()
	doc := dir.AddDoctor(clinic.Doctor{Name: "Dr. Rajesh Ahuja"})
	inner := appointments.NewInMemoryRepository()
	repo := &barrierRepo{Repository: inner}
	repo.wg.Add(2)
	svc := NewService(Config{Directory: dir, Repository: repo, Location: ist})

	req := Request{DoctorID: doc.ID, PatientName: "Asha", PatientEmail: "asha@example.com", StartTime: "2025-03-03T10:00"}
	errs := make([]error, 2)
	var done sync.WaitGroup
	for i := range errs {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			_, errs[i] = svc.Book(context.Background(), req)
		}(i)
	}
	done.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Len(t, inner.All(), 2, "check-then-insert admits a duplicate under concurrency")
}
