package bootstrap

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/geekyuvi069/CureLink/internal/calendar"
	"github.com/geekyuvi069/CureLink/internal/channels/slack"
	appconfig "github.com/geekyuvi069/CureLink/internal/config"
	"github.com/geekyuvi069/CureLink/internal/conversation"
	"github.com/geekyuvi069/CureLink/internal/notify"
	"github.com/geekyuvi069/CureLink/pkg/logging"
)

// BuildCalendar returns the Google Calendar client, or calendar.Disabled when
// credentials are absent or unusable.
func BuildCalendar(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) calendar.Client {
	if strings.TrimSpace(cfg.GoogleCalendarCredentialsFile) == "" {
		logger.Info("google calendar not configured; calendar sync disabled")
		return calendar.Disabled{}
	}
	client, err := calendar.NewGoogleCalendar(ctx, calendar.GoogleConfig{
		CredentialsFile: cfg.GoogleCalendarCredentialsFile,
		CalendarID:      cfg.GoogleCalendarID,
		TimeZone:        cfg.ClinicTimeZone,
	}, logger)
	if err != nil {
		if errors.Is(err, appconfig.ErrNotConfigured) {
			logger.Info("google calendar not configured; calendar sync disabled")
		} else {
			logger.Error("failed to create google calendar client; calendar sync disabled", "error", err)
		}
		return calendar.Disabled{}
	}
	logger.Info("google calendar enabled", "calendar_id", cfg.GoogleCalendarID)
	return client
}

// BuildEmailSender selects SendGrid, SES, or the logging stub per
// EMAIL_PROVIDER.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			logger.Info("email provider", "provider", "sendgrid")
			return sender
		}
		logger.Warn("sendgrid selected without SENDGRID_API_KEY; using email simulation")
	case "ses":
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			logger.Info("email provider", "provider", "ses")
			return sender
		}
		logger.Warn("ses selected without EMAIL_FROM; using email simulation")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildBackend wires Gemini as primary and Bedrock as fallback when both are
// configured. The returned closer releases the Gemini client.
func BuildBackend(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (conversation.Backend, func()) {
	var (
		primary, fallback conversation.Backend
		closer            = func() {}
	)

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to create gemini backend", "error", err)
		} else {
			primary = gemini
			closer = func() { _ = gemini.Close() }
		}
	}
	if strings.TrimSpace(cfg.BedrockModelID) != "" {
		bedrock := conversation.NewBedrockBackend(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if primary == nil {
			primary = bedrock
		} else {
			fallback = bedrock
		}
	}

	if primary == nil {
		logger.Warn("no generative backend configured; chat replies will report the missing credentials")
		return conversation.Unavailable{}, closer
	}
	if fallback == nil {
		logger.Info("generative backend", "backend", primary.Name())
		return primary, closer
	}
	backend := conversation.NewFallbackBackend(primary, fallback, logger)
	logger.Info("generative backend", "backend", backend.Name())
	return backend, closer
}

// BuildSlackQueue returns the SQS queue when SLACK_QUEUE_URL is set and
// USE_MEMORY_QUEUE is off, and an in-process queue otherwise.
func BuildSlackQueue(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) slack.Queue {
	if !cfg.UseMemoryQueue && cfg.SlackQueueURL != "" {
		logger.Info("slack queue", "backend", "sqs", "queue_url", cfg.SlackQueueURL)
		return slack.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.SlackQueueURL)
	}
	logger.Info("slack queue", "backend", "memory")
	return slack.NewMemoryQueue(0)
}
