package models

import (
	"strings"

	"github.com/google/uuid"
)

type ExperienceLevel string

const (
	LevelEntry  ExperienceLevel = "entry"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
	LevelAny    ExperienceLevel = "any"
)

// Job sources known to the scoring engine.
const (
	JobSourceCompanySite = "company_site"
	JobSourceGenerated   = "generated"
	JobSourceManual      = "manual"
)

// Job is the scoring input. Key is stable for the same posting across scans.
type Job struct {
	Key          string   `json:"key"`
	Title        string   `json:"title" binding:"required"`
	Company      string   `json:"company" binding:"required"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	URL          string   `json:"url"`
	SalaryMin    int      `json:"salary_min"`
	SalaryMax    int      `json:"salary_max"`
	Remote       bool     `json:"remote"`
	Source       string   `json:"source"`
	IsEntryLevel bool     `json:"is_entry_level"`
	Skills       []string `json:"skills,omitempty"`
}

// JobKey derives a deterministic identifier for a posting.
func JobKey(url, company, title string) string {
	name := strings.TrimSpace(url)
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(company)) + "|" + strings.ToLower(strings.TrimSpace(title))
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func (j *Job) EnsureKey() {
	if j.Key == "" {
		j.Key = JobKey(j.URL, j.Company, j.Title)
	}
}

// JobFromCandidate converts an extracted posting into a scoring input.
func JobFromCandidate(c JobPostingCandidate) Job {
	source := JobSourceCompanySite
	if c.Source == SourceGenerativeFallback {
		source = JobSourceGenerated
	}
	location := strings.ToLower(c.Location)
	job := Job{
		Title:        c.Title,
		Company:      c.Company,
		Location:     c.Location,
		Description:  c.Description,
		URL:          c.SourceURL,
		Remote:       strings.Contains(location, "remote") || strings.Contains(strings.ToLower(c.Title), "remote"),
		Source:       source,
		IsEntryLevel: c.IsEntryLevel,
	}
	// postings sharing their listing page are told apart by title
	keyURL := c.SourceURL
	if !c.HasOwnURL() {
		keyURL = ""
	}
	job.Key = JobKey(keyURL, c.Company, c.Title)
	return job
}

type JobMatch struct {
	Job            Job      `json:"job" binding:"required"`
	Score          float64  `json:"score"`
	AutoApplyScore float64  `json:"auto_apply_score"`
	Reasons        []string `json:"reasons"`
}

// MatchCriteria is the user's job preference profile.
type MatchCriteria struct {
	UserID             int64           `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RequiredSkills     []string        `gorm:"serializer:json" json:"required_skills"`
	PreferredLocations []string        `gorm:"serializer:json" json:"preferred_locations"`
	ExcludedCompanies  []string        `gorm:"serializer:json" json:"excluded_companies"`
	SalaryMin          int             `json:"salary_min" validate:"gte=0"`
	SalaryMax          int             `json:"salary_max" validate:"gte=0"`
	RemoteOnly         bool            `json:"remote_only"`
	MinScore           float64         `json:"min_score" validate:"gte=0,lte=1"`
	DailyCap           int             `json:"daily_cap" validate:"gte=0"`
	TargetLevel        ExperienceLevel `json:"target_level" validate:"omitempty,oneof=entry mid senior any"`
}

func (c MatchCriteria) IsExcluded(company string) bool {
	company = strings.ToLower(strings.TrimSpace(company))
	if company == "" {
		return false
	}
	for _, excluded := range c.ExcludedCompanies {
		if strings.ToLower(strings.TrimSpace(excluded)) == company {
			return true
		}
	}
	return false
}

func (c MatchCriteria) Level() ExperienceLevel {
	if c.TargetLevel == "" {
		return LevelEntry
	}
	return c.TargetLevel
}
