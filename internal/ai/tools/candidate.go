package tools

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	ToolAnalyzeCandidateFit      = "analyze_candidate_fit"
	ToolExtractCVInformation     = "extract_cv_information"
	ToolGenerateCandidateSummary = "generate_candidate_summary"
)

type CandidateProfile struct {
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
}

type JobRequirements struct {
	RequiredSkills     []string `json:"required_skills"`
	MinExperienceYears int      `json:"min_experience_years"`
}

// FitAnalysis compares a candidate with a vacancy's requirements
type FitAnalysis struct {
	MatchScore      float64  `json:"match_score"`
	MatchingSkills  []string `json:"matching_skills"`
	MissingSkills   []string `json:"missing_skills"`
	ExtraSkills     []string `json:"extra_skills"`
	ExperienceMatch bool     `json:"experience_match"`
	CandidateYears  int      `json:"candidate_years"`
	RequiredYears   int      `json:"required_years"`
	Recommendation  string   `json:"recommendation"`
}

// AnalyzeCandidateFit scores the share of required skills the candidate has.
// Skills compare case-insensitively. No required skills yields a score of 0.
func AnalyzeCandidateFit(candidate CandidateProfile, job JobRequirements) FitAnalysis {
	have := skillSet(candidate.Skills)
	want := skillSet(job.RequiredSkills)

	result := FitAnalysis{
		MatchingSkills:  []string{},
		MissingSkills:   []string{},
		ExtraSkills:     []string{},
		ExperienceMatch: candidate.ExperienceYears >= job.MinExperienceYears,
		CandidateYears:  candidate.ExperienceYears,
		RequiredYears:   job.MinExperienceYears,
	}

	for skill := range want {
		if have[skill] {
			result.MatchingSkills = append(result.MatchingSkills, skill)
		} else {
			result.MissingSkills = append(result.MissingSkills, skill)
		}
	}
	for skill := range have {
		if !want[skill] {
			result.ExtraSkills = append(result.ExtraSkills, skill)
		}
	}
	sort.Strings(result.MatchingSkills)
	sort.Strings(result.MissingSkills)
	sort.Strings(result.ExtraSkills)

	if len(want) > 0 {
		pct := float64(len(result.MatchingSkills)) / float64(len(want)) * 100
		result.MatchScore = math.Round(pct*100) / 100
	}

	switch {
	case result.MatchScore >= 70:
		result.Recommendation = "Strong match"
	case result.MatchScore >= 40:
		result.Recommendation = "Partial match"
	default:
		result.Recommendation = "Weak match"
	}
	return result
}

func skillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	return set
}

// ParseSkills splits a comma or newline separated requirement list
func ParseSkills(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	skills := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			skills = append(skills, f)
		}
	}
	return skills
}

// CVInformation is what can be pulled out of plain CV text
type CVInformation struct {
	Name   string   `json:"name"`
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
	Skills []string `json:"skills"`
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)

	knownSkills = []string{
		"AWS", "Azure", "Django", "Docker", "FastAPI", "GCP", "Git", "Golang",
		"GraphQL", "Java", "JavaScript", "Kafka", "Kubernetes", "Linux", "MongoDB",
		"MySQL", "Node.js", "PostgreSQL", "Python", "React", "Redis", "Rust",
		"SQL", "Terraform", "TypeScript",
	}
	skillPatterns = compileSkillPatterns(knownSkills)
)

func compileSkillPatterns(skills []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(skills))
	for _, s := range skills {
		patterns[s] = regexp.MustCompile(`(?i)(^|[^A-Za-z0-9])` + regexp.QuoteMeta(s) + `($|[^A-Za-z0-9])`)
	}
	return patterns
}

// ExtractCVInformation finds emails, phone numbers and known skills. The
// first non-empty line is taken as the name.
func ExtractCVInformation(text string) CVInformation {
	info := CVInformation{
		Emails: uniqueStrings(emailPattern.FindAllString(text, -1)),
		Phones: []string{},
		Skills: []string{},
	}

	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if !emailPattern.MatchString(line) {
				info.Name = line
			}
			break
		}
	}

	for _, p := range phonePattern.FindAllString(text, -1) {
		p = strings.TrimSpace(p)
		if countDigits(p) >= 8 {
			info.Phones = append(info.Phones, p)
		}
	}
	info.Phones = uniqueStrings(info.Phones)

	for _, skill := range knownSkills {
		if skillPatterns[skill].MatchString(text) {
			info.Skills = append(info.Skills, skill)
		}
	}
	return info
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// CandidateSummary renders a short plain-text profile of a candidate
func CandidateSummary(data map[string]any) string {
	name := stringOr(data["name"], "Candidate")
	title := stringOr(data["title"], "Professional")
	years, _ := argInt(data, "experience_years", 0)
	skills, _ := argStrings(data, "skills")

	mainSkills := "Not specified"
	if len(skills) > 0 {
		if len(skills) > 5 {
			skills = skills[:5]
		}
		mainSkills = strings.Join(skills, ", ")
	}

	return fmt.Sprintf("%s - %s\n\nExperience: %d years\n\nMain skills:\n%s\n\nLocation: %s\n\nProfile: %s",
		name, title, years, mainSkills,
		stringOr(data["location"], "Not specified"),
		stringOr(data["summary"], "Not available"))
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

func candidateTools() []*Tool {
	return []*Tool{
		{
			Name:        ToolAnalyzeCandidateFit,
			Description: "Compare a candidate profile with job requirements and score the match",
			Required:    []string{"candidate_profile", "job_requirements"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				profile, err := argMap(args, "candidate_profile")
				if err != nil {
					return nil, err
				}
				reqs, err := argMap(args, "job_requirements")
				if err != nil {
					return nil, err
				}

				var c CandidateProfile
				var j JobRequirements
				if c.Skills, err = argStrings(profile, "skills"); err != nil {
					return nil, err
				}
				if c.ExperienceYears, err = argInt(profile, "experience_years", 0); err != nil {
					return nil, err
				}
				if j.RequiredSkills, err = argStrings(reqs, "required_skills"); err != nil {
					return nil, err
				}
				if j.MinExperienceYears, err = argInt(reqs, "min_experience_years", 0); err != nil {
					return nil, err
				}
				return AnalyzeCandidateFit(c, j), nil
			},
		},
		{
			Name:        ToolExtractCVInformation,
			Description: "Extract contact details and known skills from CV text",
			Required:    []string{"cv_text"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				text, err := argString(args, "cv_text")
				if err != nil {
					return nil, err
				}
				return ExtractCVInformation(text), nil
			},
		},
		{
			Name:        ToolGenerateCandidateSummary,
			Description: "Generate a short executive summary of a candidate",
			Required:    []string{"candidate_data"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				data, err := argMap(args, "candidate_data")
				if err != nil {
					return nil, err
				}
				return CandidateSummary(data), nil
			},
		},
	}
}
