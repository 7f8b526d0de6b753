package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"recruitment-platform/internal/email"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to, subject, body string
	err               error
}

func (f *fakeSender) SendCandidateEmail(ctx context.Context, to, subject, body string) (*email.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.to, f.subject, f.body = to, subject, body
	return &email.Receipt{
		MessageID: "<abc@acme.test>",
		To:        []string{to},
		Subject:   subject,
		SentAt:    time.Date(2025, 11, 27, 22, 0, 0, 0, time.UTC),
		DryRun:    true,
	}, nil
}

func TestAnalyzeCandidateFit(t *testing.T) {
	tests := []struct {
		name           string
		candidate      CandidateProfile
		job            JobRequirements
		score          float64
		recommendation string
		experience     bool
	}{
		{
			name:           "strong match ignores case",
			candidate:      CandidateProfile{Skills: []string{"Go", "PostgreSQL", "Docker", "React"}, ExperienceYears: 6},
			job:            JobRequirements{RequiredSkills: []string{"go", "postgresql", "docker"}, MinExperienceYears: 5},
			score:          100,
			recommendation: "Strong match",
			experience:     true,
		},
		{
			name:           "partial match",
			candidate:      CandidateProfile{Skills: []string{"python", "django"}, ExperienceYears: 2},
			job:            JobRequirements{RequiredSkills: []string{"Python", "FastAPI"}, MinExperienceYears: 3},
			score:          50,
			recommendation: "Partial match",
			experience:     false,
		},
		{
			name:           "rounds to two decimals",
			candidate:      CandidateProfile{Skills: []string{"a"}},
			job:            JobRequirements{RequiredSkills: []string{"a", "b", "c"}},
			score:          33.33,
			recommendation: "Weak match",
			experience:     true,
		},
		{
			name:           "no requirements scores zero",
			candidate:      CandidateProfile{Skills: []string{"go"}},
			job:            JobRequirements{},
			score:          0,
			recommendation: "Weak match",
			experience:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeCandidateFit(tt.candidate, tt.job)
			assert.Equal(t, tt.score, got.MatchScore)
			assert.Equal(t, tt.recommendation, got.Recommendation)
			assert.Equal(t, tt.experience, got.ExperienceMatch)
		})
	}
}

func TestAnalyzeCandidateFit_SkillLists(t *testing.T) {
	got := AnalyzeCandidateFit(
		CandidateProfile{Skills: []string{"Redis", "Go", "Kafka"}, ExperienceYears: 4},
		JobRequirements{RequiredSkills: []string{"go", "SQL", "docker"}, MinExperienceYears: 4},
	)

	assert.Equal(t, []string{"go"}, got.MatchingSkills)
	assert.Equal(t, []string{"docker", "sql"}, got.MissingSkills)
	assert.Equal(t, []string{"kafka", "redis"}, got.ExtraSkills)
	assert.Equal(t, 33.33, got.MatchScore)
	assert.Equal(t, 4, got.CandidateYears)
	assert.Equal(t, 4, got.RequiredYears)
}

func TestParseSkills(t *testing.T) {
	assert.Equal(t, []string{"go", "postgresql", "docker"}, ParseSkills("go, postgresql,\n docker ,"))
	assert.Empty(t, ParseSkills("  "))
}

func TestExtractCVInformation(t *testing.T) {
	cv := `Jane Smith
jane.smith@example.com | +58 412 1234567
Backend engineer with Golang, PostgreSQL and Kubernetes.
Contact again: jane.smith@example.com`

	info := ExtractCVInformation(cv)
	assert.Equal(t, "Jane Smith", info.Name)
	assert.Equal(t, []string{"jane.smith@example.com"}, info.Emails)
	assert.Equal(t, []string{"+58 412 1234567"}, info.Phones)
	assert.Equal(t, []string{"Golang", "Kubernetes", "PostgreSQL"}, info.Skills)
}

func TestExtractCVInformation_NoSQLInsidePostgreSQL(t *testing.T) {
	info := ExtractCVInformation("Worked with PostgreSQL")
	assert.NotContains(t, info.Skills, "SQL")
}

func TestCandidateSummary(t *testing.T) {
	summary := CandidateSummary(map[string]any{
		"name":             "Jane Smith",
		"title":            "Backend Engineer",
		"experience_years": 7,
		"skills":           []any{"Go", "SQL", "Docker", "Redis", "Kafka", "AWS"},
		"location":         "Berlin",
	})

	assert.Contains(t, summary, "Jane Smith - Backend Engineer")
	assert.Contains(t, summary, "Experience: 7 years")
	assert.Contains(t, summary, "Go, SQL, Docker, Redis, Kafka\n")
	assert.NotContains(t, summary, "AWS")
	assert.Contains(t, summary, "Location: Berlin")
	assert.Contains(t, summary, "Profile: Not available")

	empty := CandidateSummary(map[string]any{})
	assert.Contains(t, empty, "Candidate - Professional")
	assert.Contains(t, empty, "Not specified")
}

func TestSearchLinkedIn(t *testing.T) {
	res := SearchLinkedIn("Go Developer", "", 10)
	require.True(t, res.Success)
	assert.Equal(t, 5, res.TotalResults)
	require.Len(t, res.Profiles, 5)

	first := res.Profiles[0]
	assert.Equal(t, "Candidate 1", first.Name)
	assert.Equal(t, "Remote", first.Location)
	assert.Equal(t, "https://linkedin.com/in/candidate-1", first.LinkedInURL)
	assert.Equal(t, "Experienced developer with expertise in Go Developer", first.Summary)
	assert.Equal(t, 6, first.ExperienceYears)
	assert.Equal(t, 10, res.Profiles[4].ExperienceYears)

	small := SearchLinkedIn("Go", "Caracas", 2)
	assert.Len(t, small.Profiles, 2)
	assert.Equal(t, "Caracas", small.Profiles[1].Location)

	assert.Empty(t, SearchLinkedIn("Go", "", 0).Profiles)
}

func TestNormalizeSkills(t *testing.T) {
	assert.Equal(t, []string{"django", "python"}, NormalizeSkills([]string{"Python", "python", " Django "}))
}

func TestEmailDrafts(t *testing.T) {
	inv := InterviewInvitationEmail("Jane", "Go Developer", "2025-12-01", "10:00", "Acme")
	assert.Equal(t, "Interview Invitation - Go Developer at Acme", inv.Subject)
	assert.Contains(t, inv.Body, "Dear Jane,")
	assert.Contains(t, inv.Body, "- Date: 2025-12-01")
	assert.Contains(t, inv.Body, "- Time: 10:00")

	rej := RejectionEmail("Jane", "Go Developer", "Acme", "")
	assert.Equal(t, "Selection Process - Go Developer", rej.Subject)
	assert.NotContains(t, rej.Body, "\n\n\n")

	withFeedback := RejectionEmail("Jane", "Go Developer", "Acme", "Your system design was great.")
	assert.Contains(t, withFeedback.Body, "\nYour system design was great.\n")
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry(nil)

	assert.Equal(t, []string{
		ToolAnalyzeCandidateFit,
		ToolExtractCVInformation,
		ToolExtractProfileSkills,
		ToolGenerateCandidateSummary,
		ToolInterviewInvitation,
		ToolRejectionEmail,
		ToolLinkedInProfileDetails,
		ToolLinkedInSearch,
		ToolSendCandidateEmail,
	}, r.Names())

	_, err := r.Get("unknown_tool")
	assert.ErrorIs(t, err, ErrToolNotFound)

	tool, err := r.Get(ToolLinkedInSearch)
	require.NoError(t, err)
	err = r.Register(tool)
	assert.ErrorIs(t, err, ErrToolAlreadyRegistered)

	err = r.Register(&Tool{Name: "broken"})
	assert.Error(t, err)
}

func TestToolCall_Arguments(t *testing.T) {
	r := NewDefaultRegistry(nil)
	ctx := context.Background()

	search, err := r.Get(ToolLinkedInSearch)
	require.NoError(t, err)

	out, err := search.Call(ctx, map[string]any{"query": "Go", "max_results": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, out.(LinkedInSearchResult).TotalResults)

	_, err = search.Call(ctx, nil)
	assert.ErrorIs(t, err, ErrMissingRequiredArg)

	_, err = search.Call(ctx, map[string]any{"query": 42})
	assert.ErrorIs(t, err, ErrInvalidArgType)

	fit, err := r.Get(ToolAnalyzeCandidateFit)
	require.NoError(t, err)
	out, err = fit.Call(ctx, map[string]any{
		"candidate_profile": map[string]any{"skills": []any{"Python", "Django"}, "experience_years": 3},
		"job_requirements":  map[string]any{"required_skills": []any{"Python", "FastAPI"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, out.(FitAnalysis).MatchScore)

	skills, err := r.Get(ToolExtractProfileSkills)
	require.NoError(t, err)
	out, err = skills.Call(ctx, map[string]any{"profile_data": map[string]any{"skills": []any{"AWS", "aws", "Go"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"aws", "go"}, out)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = search.Call(cancelled, map[string]any{"query": "Go"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendCandidateEmailTool(t *testing.T) {
	sender := &fakeSender{}
	tool, err := NewDefaultRegistry(sender).Get(ToolSendCandidateEmail)
	require.NoError(t, err)

	out, err := tool.Call(context.Background(), map[string]any{
		"to_email":  "jane@example.com",
		"subject":   "Hello",
		"body":      "Body",
		"tenant_id": "tenant-1",
	})
	require.NoError(t, err)

	res := out.(SendResult)
	assert.True(t, res.Success)
	assert.True(t, res.DryRun)
	assert.Equal(t, "<abc@acme.test>", res.MessageID)
	assert.Equal(t, "2025-11-27T22:00:00Z", res.SentAt)
	assert.Equal(t, "jane@example.com", sender.to)

	failing, err := NewDefaultRegistry(&fakeSender{err: errors.New("smtp down")}).Get(ToolSendCandidateEmail)
	require.NoError(t, err)
	_, err = failing.Call(context.Background(), map[string]any{"to_email": "a@b.c", "subject": "s", "body": "b"})
	assert.EqualError(t, err, "smtp down")

	unconfigured, err := NewDefaultRegistry(nil).Get(ToolSendCandidateEmail)
	require.NoError(t, err)
	_, err = unconfigured.Call(context.Background(), map[string]any{"to_email": "a@b.c", "subject": "s", "body": "b"})
	assert.Error(t, err)
}
