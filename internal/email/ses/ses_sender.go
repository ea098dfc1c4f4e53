package ses

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"orderaudit/internal/config"
	"orderaudit/internal/domain"
	"orderaudit/internal/email"
	"orderaudit/internal/port"
)

type sesSender struct {
	client       *sesv2.Client
	from         string
	recipients   []string
	dashboardURL string
}

// NewSESSender creates a new SES-backed EmailSender.
func NewSESSender(ctx context.Context, cfg *config.EmailConfig) (port.EmailSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesSender{
		client:       sesv2.NewFromConfig(awsCfg),
		from:         fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
		recipients:   cfg.Recipients,
		dashboardURL: cfg.DashboardURL,
	}, nil
}

func (s *sesSender) SendAuditSummary(ctx context.Context, rec *domain.AuditRecord, alerts []domain.FileAlert) error {
	if len(s.recipients) == 0 {
		return nil
	}
	msg := email.BuildSummary(rec, alerts, s.dashboardURL)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &s.from,
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Subject},
				Body: &types.Body{
					Html: &types.Content{Data: &msg.HTML},
					Text: &types.Content{Data: &msg.Text},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
