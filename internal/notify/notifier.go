// Package notify publishes the summary of a metadata run to SNS and/or SES.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"box-metadata-workers/internal/common/aws"
	"box-metadata-workers/internal/common/config"
	"box-metadata-workers/internal/common/errors"
	"box-metadata-workers/internal/common/logger"
	"box-metadata-workers/internal/orchestrator"
)

const (
	ChannelSNS = "sns"
	ChannelSES = "ses"
)

type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type Options struct {
	Publisher Publisher
	TopicARN  string

	EmailSender EmailSender
	FromEmail   string
	To          []string

	Logger logger.Logger
}

type Notifier struct {
	publisher   Publisher
	topicARN    string
	emailSender EmailSender
	fromEmail   string
	to          []string
	logger      logger.Logger
}

func New(opts Options) *Notifier {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Notifier{
		publisher:   opts.Publisher,
		topicARN:    opts.TopicARN,
		emailSender: opts.EmailSender,
		fromEmail:   opts.FromEmail,
		to:          opts.To,
		logger:      opts.Logger,
	}
}

// NewFromConfig builds the AWS clients for the enabled channels. With no
// channel enabled the returned Notifier does nothing.
func NewFromConfig(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	opts := Options{Logger: log}

	if cfg.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create sns client: %w", err)
		}
		opts.Publisher = client
		opts.TopicARN = cfg.SNS.TopicARN
	}

	if cfg.SES.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create ses client: %w", err)
		}
		opts.EmailSender = client
		opts.FromEmail = cfg.SES.FromEmail
		opts.To = cfg.SES.To
	}

	return New(opts), nil
}

func (n *Notifier) Enabled() bool {
	return n != nil && (n.publisher != nil || n.emailSender != nil)
}

// Summary is the message body published for a run.
type Summary struct {
	RunID     string        `json:"runId"`
	SessionID string        `json:"sessionId,omitempty"`
	Message   string        `json:"message"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []FailureLine `json:"failures,omitempty"`
}

type FailureLine struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

func NewSummary(sessionID string, report *orchestrator.Report) Summary {
	s := Summary{
		RunID:     report.RunID.String(),
		SessionID: sessionID,
		Message:   report.Summary(),
		Total:     report.Total,
		Succeeded: report.SucceededCount(),
		Failed:    report.FailedCount(),
	}
	for _, f := range report.Failed {
		s.Failures = append(s.Failures, FailureLine{
			FileID:   f.Result.FileID,
			FileName: f.Result.FileName,
			Error:    f.Result.Error,
		})
	}
	return s
}

func (s Summary) Subject() string {
	return fmt.Sprintf("Box metadata run: %d of %d files applied", s.Succeeded, s.Total)
}

func (s Summary) Text() string {
	var b strings.Builder
	b.WriteString(s.Message)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Run: %s\n", s.RunID)
	if s.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", s.SessionID)
	}
	if len(s.Failures) > 0 {
		b.WriteString("\nFailed files:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "- %s (%s): %s\n", f.FileName, f.FileID, f.Error)
		}
	}
	return b.String()
}

// Notify sends the summary on every configured channel. Both channels are
// attempted; the first failure is returned.
func (n *Notifier) Notify(ctx context.Context, sessionID string, report *orchestrator.Report) error {
	if !n.Enabled() || report == nil {
		return nil
	}

	summary := NewSummary(sessionID, report)
	var firstErr error

	if n.publisher != nil {
		if err := n.publish(ctx, summary); err != nil {
			firstErr = err
		}
	}
	if n.emailSender != nil {
		if err := n.email(ctx, summary); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *Notifier) publish(ctx context.Context, summary Summary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return errors.NewNotificationFailedError(ChannelSNS, err)
	}

	out, err := n.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Subject:  awssdk.String(summary.Subject()),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"runId": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(summary.RunID),
			},
		},
	})
	if err != nil {
		n.logger.Error("Failed to publish run summary", map[string]interface{}{
			"channel": ChannelSNS,
			"runId":   summary.RunID,
			"error":   err.Error(),
		})
		return errors.NewNotificationFailedError(ChannelSNS, err)
	}

	n.logger.Info("Run summary published", map[string]interface{}{
		"channel":   ChannelSNS,
		"runId":     summary.RunID,
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}

func (n *Notifier) email(ctx context.Context, summary Summary) error {
	out, err := n.emailSender.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(n.fromEmail),
		Destination: &sestypes.Destination{ToAddresses: n.to},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(summary.Subject())},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(summary.Text())},
			},
		},
	})
	if err != nil {
		n.logger.Error("Failed to email run summary", map[string]interface{}{
			"channel": ChannelSES,
			"runId":   summary.RunID,
			"error":   err.Error(),
		})
		return errors.NewNotificationFailedError(ChannelSES, err)
	}

	n.logger.Info("Run summary emailed", map[string]interface{}{
		"channel":    ChannelSES,
		"runId":      summary.RunID,
		"recipients": len(n.to),
		"messageId":  awssdk.ToString(out.MessageId),
	})
	return nil
}
