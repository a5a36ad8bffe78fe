package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/geekyuvi069/CureLink/internal/config"
	"github.com/geekyuvi069/CureLink/pkg/logging"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is a calendar entry for one appointment.
type Event struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// Created identifies an inserted event.
type Created struct {
	ID   string
	Link string
}

// Client creates calendar events.
type Client interface {
	CreateEvent(ctx context.Context, ev Event) (*Created, error)
}

// GoogleCalendar inserts events through the Google Calendar v3 API.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	timeZone   string
	logger     *logging.Logger
}

// GoogleConfig holds Google Calendar settings.
type GoogleConfig struct {
	CredentialsFile string
	CalendarID      string
	// TimeZone is the IANA zone attached to event times, e.g. "Asia/Kolkata".
	TimeZone string
}

// NewGoogleCalendar builds a client from a service-account credentials file.
// Extra options are appended, which lets tests point at a fake endpoint.
func NewGoogleCalendar(ctx context.Context, cfg GoogleConfig, logger *logging.Logger, opts ...option.ClientOption) (*GoogleCalendar, error) {
	if logger == nil {
		logger = logging.Default()
	}
	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if len(opts) == 0 {
		return nil, fmt.Errorf("calendar: %w", config.ErrNotConfigured)
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	return &GoogleCalendar{
		svc:        svc,
		calendarID: cfg.CalendarID,
		timeZone:   cfg.TimeZone,
		logger:     logger,
	}, nil
}

// CreateEvent inserts ev and returns its id and shareable link.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev Event) (*Created, error) {
	event := &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: g.timeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: g.timeZone,
		},
	}
	if ev.AttendeeEmail != "" {
		event.Attendees = []*gcal.EventAttendee{{Email: ev.AttendeeEmail}}
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		g.logger.Error("calendar event insert failed", "error", err, "summary", ev.Summary)
		return nil, fmt.Errorf("calendar: insert event: %w", err)
	}
	g.logger.Info("calendar event created", "event_id", created.Id, "summary", ev.Summary)
	return &Created{ID: created.Id, Link: created.HtmlLink}, nil
}

// Disabled is used when no calendar credentials are configured.
type Disabled struct{}

func (Disabled) CreateEvent(context.Context, Event) (*Created, error) {
	return nil, fmt.Errorf("calendar: %w", config.ErrNotConfigured)
}

var (
	_ Client = (*GoogleCalendar)(nil)
	_ Client = Disabled{}
)
