package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "clinic@example.com"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "clinic@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Errorf("expected default from name %q, got %q", defaultFromName, sender.fromName)
	}
}

func TestSendGridSender_SendPostsToEndpoint(t *testing.T) {
	var payload map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "SG.test",
		FromEmail: "clinic@example.com",
		Endpoint:  srv.URL + "/v3/mail/send",
	}, nil)
	require.NotNil(t, sender)

	err := sender.Send(context.Background(), EmailMessage{To: "asha@example.com", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer SG.test", auth)
	assert.Equal(t, "Hi", payload["subject"])
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewSendGridSender(SendGridConfig{APIKey: "bad", FromEmail: "clinic@example.com", Endpoint: srv.URL}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "asha@example.com", Subject: "Hi", Body: "Hello"})
	assert.Error(t, err)
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "recipient@example.com"})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_IsSimulated(t *testing.T) {
	sender := NewStubEmailSender(nil)
	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "recipient@example.com", Subject: "Test"}))
	assert.True(t, IsSimulated(sender))
	assert.False(t, IsSimulated(&SendGridSender{}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "clinic@example.com"}, nil)
	require.NotNil(t, sender)

	msg := ConfirmationEmail(AppointmentConfirmation{
		PatientName:  "Asha",
		PatientEmail: "asha@example.com",
		DoctorName:   "Dr. Rajesh Ahuja",
		When:         "2025-03-03 10:00",
	})
	require.NoError(t, sender.Send(context.Background(), msg))

	assert.Equal(t, "CureLink Clinic <clinic@example.com>", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"asha@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Appointment Confirmation: Dr. Rajesh Ahuja", aws.ToString(api.input.Content.Simple.Subject.Data))
	assert.NotNil(t, api.input.Content.Simple.Body.Html)

	api.err = errors.New("throttled")
	assert.Error(t, sender.Send(context.Background(), msg))
}

func TestNewSESSender_RequiresFromAddress(t *testing.T) {
	assert.Nil(t, NewSESSender(&fakeSES{}, SESConfig{}, nil))
}

func TestConfirmationEmail(t *testing.T) {
	msg := ConfirmationEmail(AppointmentConfirmation{
		PatientName:  "Asha <A>",
		PatientEmail: "asha@example.com",
		DoctorName:   "Dr. Sarah Smith",
		When:         "2025-03-04 10:30",
		Reason:       "Chest pain",
		CalendarLink: "https://calendar.example/e/1",
	})
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Appointment Confirmation: Dr. Sarah Smith", msg.Subject)
	assert.True(t, strings.Contains(msg.Body, "2025-03-04 10:30"))
	assert.True(t, strings.Contains(msg.Body, "Reason for visit: Chest pain"))
	assert.True(t, strings.Contains(msg.HTML, "Asha &lt;A&gt;"))
	assert.True(t, strings.Contains(msg.HTML, "https://calendar.example/e/1"))
}
