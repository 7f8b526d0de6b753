package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recruitment-platform/internal/email"
)

const (
	ToolSendCandidateEmail  = "send_candidate_email"
	ToolInterviewInvitation = "generate_interview_invitation_email"
	ToolRejectionEmail      = "generate_rejection_email"
)

// EmailSender delivers a message to a candidate. *email.EmailService
// implements it.
type EmailSender interface {
	SendCandidateEmail(ctx context.Context, to, subject, body string) (*email.Receipt, error)
}

type EmailDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	SentAt    string `json:"sent_at"`
	DryRun    bool   `json:"dry_run"`
	TenantID  string `json:"tenant_id,omitempty"`
}

// InterviewInvitationEmail drafts an interview invitation
func InterviewInvitationEmail(candidateName, position, interviewDate, interviewTime, company string) EmailDraft {
	body := fmt.Sprintf(`Dear %s,

We are pleased to let you know that you have been selected for an interview
for the %s position at %s.

Interview details:
- Date: %s
- Time: %s
- Format: Virtual (a link will be sent shortly)

Please confirm your attendance by replying to this email.

Kind regards,
Recruitment Team
%s`, candidateName, position, company, interviewDate, interviewTime, company)

	return EmailDraft{
		Subject: fmt.Sprintf("Interview Invitation - %s at %s", position, company),
		Body:    body,
	}
}

// RejectionEmail drafts a courteous rejection. feedback is optional.
func RejectionEmail(candidateName, position, company, feedback string) EmailDraft {
	feedbackSection := ""
	if feedback = strings.TrimSpace(feedback); feedback != "" {
		feedbackSection = "\n" + feedback + "\n"
	}

	body := fmt.Sprintf(`Dear %s,

Thank you for your interest in the %s position
at %s and for the time you dedicated to the selection process.
%s
After careful evaluation, we have decided to move forward with
other candidates whose profiles more closely match the current
needs of the role.

We value your experience and skills and would like to keep your
profile on file for future opportunities.

We wish you every success in your job search.

Kind regards,
Recruitment Team
%s`, candidateName, position, company, feedbackSection, company)

	return EmailDraft{
		Subject: fmt.Sprintf("Selection Process - %s", position),
		Body:    body,
	}
}

func emailTools(sender EmailSender) []*Tool {
	return []*Tool{
		{
			Name:        ToolSendCandidateEmail,
			Description: "Send an email to a candidate",
			Required:    []string{"to_email", "subject", "body"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				if sender == nil {
					return nil, errors.New("email sender not configured")
				}
				to, err := argString(args, "to_email")
				if err != nil {
					return nil, err
				}
				subject, err := argString(args, "subject")
				if err != nil {
					return nil, err
				}
				body, err := argString(args, "body")
				if err != nil {
					return nil, err
				}
				tenantID, err := argString(args, "tenant_id")
				if err != nil {
					return nil, err
				}

				receipt, err := sender.SendCandidateEmail(ctx, to, subject, body)
				if err != nil {
					return nil, err
				}
				return SendResult{
					Success:   true,
					MessageID: receipt.MessageID,
					To:        to,
					Subject:   subject,
					SentAt:    receipt.SentAt.Format(time.RFC3339),
					DryRun:    receipt.DryRun,
					TenantID:  tenantID,
				}, nil
			},
		},
		{
			Name:        ToolInterviewInvitation,
			Description: "Draft an interview invitation email",
			Required:    []string{"candidate_name", "position", "interview_date", "interview_time", "company_name"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				vals, err := stringArgs(args, "candidate_name", "position", "interview_date", "interview_time", "company_name")
				if err != nil {
					return nil, err
				}
				return InterviewInvitationEmail(vals[0], vals[1], vals[2], vals[3], vals[4]), nil
			},
		},
		{
			Name:        ToolRejectionEmail,
			Description: "Draft a rejection email with optional personalized feedback",
			Required:    []string{"candidate_name", "position", "company_name"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				vals, err := stringArgs(args, "candidate_name", "position", "company_name", "personalized_feedback")
				if err != nil {
					return nil, err
				}
				return RejectionEmail(vals[0], vals[1], vals[2], vals[3]), nil
			},
		},
	}
}

func stringArgs(args map[string]any, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		s, err := argString(args, name)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
