package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	log "github.com/sirupsen/logrus"

	"familypoints/internal/models"
)

// emailSender is the part of the SES client the service uses
type emailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     emailSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	if debug {
		log.WithFields(log.Fields{
			"region":    awsRegion,
			"from":      fromEmail,
			"from_name": fromName,
			"base_url":  appBaseURL,
		}).Debug("Initializing email service with AWS SES")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.WithFields(log.Fields{
		"from":   fromEmail,
		"region": awsRegion,
	}).Info("Email service enabled")

	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug), nil
}

func newEmailService(client emailSender, fromEmail, fromName, appBaseURL string, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyRedemptionRequested emails every parent with an address that a child
// asked for a reward. Parents without an email are skipped.
func (s *EmailService) NotifyRedemptionRequested(ctx context.Context, parents []models.Account, child *models.Account, item *models.RewardCatalogItem) error {
	if !s.enabled {
		if s.debug {
			log.WithField("child_id", child.ID).Debug("Skipping redemption email (service disabled)")
		}
		return nil
	}

	subject := fmt.Sprintf("%s would like to redeem %s", child.Name, item.Name)
	reviewLink := fmt.Sprintf("%s/rewards/pending?childId=%d", s.appBaseURL, child.ID)

	var firstErr error
	for _, parent := range parents {
		if parent.Email == nil || *parent.Email == "" {
			continue
		}
		htmlBody, textBody := redemptionEmailBodies(parent.Name, child.Name, item, reviewLink)
		if err := s.sendEmail(ctx, *parent.Email, subject, htmlBody, textBody); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func redemptionEmailBodies(parentName, childName string, item *models.RewardCatalogItem, reviewLink string) (string, string) {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #f5a623; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #f5a623; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Reward Request</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p><strong>%s</strong> asked to redeem <strong>%s</strong> for %d points.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Review Request</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from Family Points. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(parentName), html.EscapeString(childName), html.EscapeString(item.Name), item.CostPoints, reviewLink)

	textBody := fmt.Sprintf(`Hi %s,

%s asked to redeem %s for %d points.

Review the request: %s

---
This is an automated email from Family Points. Please do not reply.
`, parentName, childName, item.Name, item.CostPoints, reviewLink)

	return htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	entry := log.WithFields(log.Fields{"to": toEmail, "subject": subject})
	if s.debug && result.MessageId != nil {
		entry = entry.WithField("message_id", *result.MessageId)
	}
	entry.Info("Email sent successfully")
	return nil
}
