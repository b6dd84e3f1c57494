package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"mindspark/internal/logger"
)

// sesAPI is the part of the SES client the email service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client    sesAPI
	fromEmail string
	fromName  string
	enabled   bool
	log       *logger.Logger
}

// CertificateEmail is the content of a certificate notification
type CertificateEmail struct {
	ToEmail      string
	ToName       string
	Topic        string
	Score        int
	CredentialID string
	ShareURL     string
}

// NewEmailService creates a new email service. It is disabled when fromEmail is empty.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, log *logger.Logger) (*EmailService, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("service", "EmailService")

	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{log: log}, nil
	}

	log.Debug("initializing email service with AWS SES", "region", awsRegion, "from", fromEmail, "from_name", fromName)

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, log), nil
}

func newEmailService(client sesAPI, fromEmail, fromName string, log *logger.Logger) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		log:       log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendCertificateEmail tells the user their certificate is ready
func (s *EmailService) SendCertificateEmail(ctx context.Context, msg CertificateEmail) error {
	if !s.IsEnabled() {
		if s != nil {
			s.log.Debug("skipping email send (service disabled)", "to", msg.ToEmail)
		}
		return nil
	}
	if msg.ToEmail == "" {
		return fmt.Errorf("certificate email has no recipient")
	}

	subject := fmt.Sprintf("Your MindSpark certificate: %s", msg.Topic)

	link := ""
	if msg.ShareURL != "" {
		link = fmt.Sprintf(`<p><a class="button" href="%s">View your certificate</a></p>`, html.EscapeString(msg.ShareURL))
	}
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #4f46e5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #4f46e5; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Congratulations!</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>You scored <strong>%d%%</strong> on the <strong>%s</strong> quiz.</p>
			%s
			<p>Credential ID: <code>%s</code></p>
		</div>
		<div class="footer">
			<p>This is an automated email from MindSpark. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(msg.ToName), msg.Score, html.EscapeString(msg.Topic), link, html.EscapeString(msg.CredentialID))

	textBody := fmt.Sprintf(`Hi %s,

You scored %d%% on the %s quiz.

Credential ID: %s
`, msg.ToName, msg.Score, msg.Topic, msg.CredentialID)
	if msg.ShareURL != "" {
		textBody += fmt.Sprintf("View your certificate: %s\n", msg.ShareURL)
	}
	textBody += `
---
This is an automated email from MindSpark. Please do not reply.
`

	return s.sendEmail(ctx, msg.ToEmail, subject, htmlBody, textBody)
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

	s.log.Debug("calling SES SendEmail", "to", toEmail, "subject", subject, "html_bytes", len(htmlBody))

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.log.Info("email sent", "to", toEmail, "message_id", messageID)
	return nil
}
