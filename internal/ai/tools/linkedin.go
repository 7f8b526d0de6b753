package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	ToolLinkedInSearch         = "linkedin_search"
	ToolLinkedInProfileDetails = "get_linkedin_profile_details"
	ToolExtractProfileSkills   = "extract_skills_from_profile"

	maxSearchProfiles = 5
)

type LinkedInProfile struct {
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	Location        string   `json:"location"`
	LinkedInURL     string   `json:"linkedin_url"`
	Summary         string   `json:"summary"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
}

type LinkedInSearchResult struct {
	Success      bool              `json:"success"`
	Query        string            `json:"query"`
	Location     string            `json:"location,omitempty"`
	TotalResults int               `json:"total_results"`
	Profiles     []LinkedInProfile `json:"profiles"`
}

// SearchLinkedIn returns up to five deterministic profiles for a query.
// There is no LinkedIn API integration; the profiles are placeholders the
// sourcing workflow can reason over.
func SearchLinkedIn(query, location string, maxResults int) LinkedInSearchResult {
	n := maxResults
	if n > maxSearchProfiles {
		n = maxSearchProfiles
	}
	if n < 0 {
		n = 0
	}

	profileLocation := location
	if profileLocation == "" {
		profileLocation = "Remote"
	}

	profiles := make([]LinkedInProfile, 0, n)
	for i := 1; i <= n; i++ {
		profiles = append(profiles, LinkedInProfile{
			Name:            fmt.Sprintf("Candidate %d", i),
			Title:           "Senior Python Developer",
			Location:        profileLocation,
			LinkedInURL:     fmt.Sprintf("https://linkedin.com/in/candidate-%d", i),
			Summary:         fmt.Sprintf("Experienced developer with expertise in %s", query),
			Skills:          []string{"Python", "Django", "PostgreSQL", "Docker"},
			ExperienceYears: 5 + i,
		})
	}

	return LinkedInSearchResult{
		Success:      true,
		Query:        query,
		Location:     location,
		TotalResults: len(profiles),
		Profiles:     profiles,
	}
}

type ProfileExperience struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type ProfileEducation struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Year   string `json:"year"`
}

type LinkedInProfileDetails struct {
	Success        bool                `json:"success"`
	URL            string              `json:"url"`
	Name           string              `json:"name"`
	Title          string              `json:"title"`
	Location       string              `json:"location"`
	Summary        string              `json:"summary"`
	Experience     []ProfileExperience `json:"experience"`
	Education      []ProfileEducation  `json:"education"`
	Skills         []string            `json:"skills"`
	Certifications []string            `json:"certifications"`
}

// GetLinkedInProfileDetails returns a fixed sample profile for the URL
func GetLinkedInProfileDetails(url string) LinkedInProfileDetails {
	return LinkedInProfileDetails{
		Success:  true,
		URL:      url,
		Name:     "John Doe",
		Title:    "Senior Python Developer",
		Location: "Caracas, Venezuela",
		Summary:  "Passionate developer with 10+ years of experience",
		Experience: []ProfileExperience{{
			Company:     "Tech Corp",
			Title:       "Senior Developer",
			Duration:    "2020 - Present",
			Description: "Leading backend development team",
		}},
		Education: []ProfileEducation{{
			School: "Universidad Central de Venezuela",
			Degree: "Computer Science",
			Year:   "2015",
		}},
		Skills:         []string{"Python", "Django", "React", "AWS"},
		Certifications: []string{"AWS Certified Developer"},
	}
}

// NormalizeSkills lowercases, deduplicates and sorts skills
func NormalizeSkills(skills []string) []string {
	set := skillSet(skills)
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func linkedInTools() []*Tool {
	return []*Tool{
		{
			Name:        ToolLinkedInSearch,
			Description: "Search LinkedIn profiles matching keywords and an optional location",
			Required:    []string{"query"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				query, err := argString(args, "query")
				if err != nil {
					return nil, err
				}
				location, err := argString(args, "location")
				if err != nil {
					return nil, err
				}
				max, err := argInt(args, "max_results", 10)
				if err != nil {
					return nil, err
				}
				return SearchLinkedIn(strings.TrimSpace(query), strings.TrimSpace(location), max), nil
			},
		},
		{
			Name:        ToolLinkedInProfileDetails,
			Description: "Fetch the full details of a LinkedIn profile",
			Required:    []string{"linkedin_url"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				url, err := argString(args, "linkedin_url")
				if err != nil {
					return nil, err
				}
				return GetLinkedInProfileDetails(url), nil
			},
		},
		{
			Name:        ToolExtractProfileSkills,
			Description: "Extract normalized skills from profile data",
			Required:    []string{"profile_data"},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				profile, err := argMap(args, "profile_data")
				if err != nil {
					return nil, err
				}
				skills, err := argStrings(profile, "skills")
				if err != nil {
					return nil, err
				}
				return NormalizeSkills(skills), nil
			},
		},
	}
}
