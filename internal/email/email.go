package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EmailService struct {
	config *config.Config
	logger *zap.Logger
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type EmailData struct {
	To       []string
	Subject  string
	Template string
	Data     interface{}
}

// Receipt describes a delivered (or, without SMTP, a logged) message
type Receipt struct {
	MessageID string    `json:"message_id"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sent_at"`
	DryRun    bool      `json:"dry_run"`
}

// Template data structures
type CandidateMessageData struct {
	Paragraphs []string
	FromName   string
}

type InvitationData struct {
	Name       string
	TenantName string
	InvitedBy  string
	Role       string
	Username   string
	IsNewUser  bool
	FromName   string
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger *zap.Logger) *EmailService {
	var auth smtp.Auth
	if cfg.Email.SMTPUser != "" && cfg.Email.SMTPPassword != "" {
		auth = smtp.PlainAuth("", cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.SMTPHost)
	}

	return &EmailService{
		config: cfg,
		logger: logger,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// SendCandidateEmail sends a plain-text body to a candidate
func (e *EmailService) SendCandidateEmail(ctx context.Context, to, subject, body string) (*Receipt, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, fmt.Errorf("recipient is required")
	}

	return e.sendEmail(ctx, EmailData{
		To:       []string{to},
		Subject:  subject,
		Template: "candidate_message",
		Data: CandidateMessageData{
			Paragraphs: strings.Split(strings.TrimSpace(body), "\n\n"),
			FromName:   e.config.Email.FromName,
		},
	})
}

// SendInvitation tells a user they were added to a tenant
func (e *EmailService) SendInvitation(ctx context.Context, user *models.User, tenant *models.Tenant, role models.TenantRole, invitedBy string, isNew bool) (*Receipt, error) {
	name := user.FullName()
	if name == "" {
		name = user.Email
	}

	return e.sendEmail(ctx, EmailData{
		To:       []string{user.Email},
		Subject:  fmt.Sprintf("You have been invited to %s", tenant.Name),
		Template: "invitation",
		Data: InvitationData{
			Name:       name,
			TenantName: tenant.Name,
			InvitedBy:  invitedBy,
			Role:       string(role),
			Username:   user.Username,
			IsNewUser:  isNew,
			FromName:   e.config.Email.FromName,
		},
	})
}

// sendEmail renders and delivers a message. Without an SMTP host the message
// is only logged.
func (e *EmailService) sendEmail(ctx context.Context, emailData EmailData) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		MessageID: fmt.Sprintf("<%s@%s>", uuid.New().String(), mailDomain(e.config.Email.From)),
		To:        emailData.To,
		Subject:   emailData.Subject,
		SentAt:    time.Now().UTC(),
	}

	body, err := e.renderTemplate(emailData.Template, emailData.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	if !e.config.Email.Enabled() {
		receipt.DryRun = true
		e.logger.Info("SMTP not configured, email not sent",
			zap.Strings("to", emailData.To),
			zap.String("subject", emailData.Subject),
			zap.String("template", emailData.Template))
		return receipt, nil
	}

	message := e.buildMessage(emailData.To, emailData.Subject, receipt.MessageID, body)
	addr := fmt.Sprintf("%s:%d", e.config.Email.SMTPHost, e.config.Email.SMTPPort)

	if err := e.send(addr, e.auth, e.config.Email.From, emailData.To, []byte(message)); err != nil {
		e.logger.Error("Failed to send email",
			zap.Error(err),
			zap.Strings("to", emailData.To),
			zap.String("subject", emailData.Subject))
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Info("Email sent successfully",
		zap.Strings("to", emailData.To),
		zap.String("subject", emailData.Subject))

	return receipt, nil
}

var templates = map[string]string{
	"candidate_message": `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        {{range .Paragraphs}}<p>{{.}}</p>
        {{end}}
        <p style="color: #888; font-size: 12px;">Sent by {{.FromName}}</p>
    </div>
</body>
</html>`,

	"invitation": `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invitation</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #2c5aa0;">Welcome to {{.TenantName}}</h1>
        <p>Hello {{.Name}},</p>
        <p>{{if .InvitedBy}}{{.InvitedBy}} has added you{{else}}You have been added{{end}} to {{.TenantName}} as <strong>{{.Role}}</strong>.</p>
        {{if .IsNewUser}}<p>An account was created for you with the username <strong>{{.Username}}</strong>. Use the password reset flow to choose a password.</p>{{end}}
        <p>{{.FromName}}</p>
    </div>
</body>
</html>`,
}

// renderTemplate renders an email template with the provided data
func (e *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	templateStr, exists := templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	tmpl, err := template.New(templateName).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// buildMessage builds the email message with headers
func (e *EmailService) buildMessage(to []string, subject, messageID, body string) string {
	from := e.config.Email.From
	if e.config.Email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", e.config.Email.FromName, e.config.Email.From)
	}

	headers := [][2]string{
		{"From", from},
		{"To", strings.Join(to, ", ")},
		{"Subject", subject},
		{"Message-ID", messageID},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

func mailDomain(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
