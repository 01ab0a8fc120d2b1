package models

import (
	"strings"
	"time"
)

type CompanySize string

const (
	SizeStartup CompanySize = "startup"
	SizeSmall   CompanySize = "small"
	SizeMedium  CompanySize = "medium"
	SizeLarge   CompanySize = "large"
)

type ExtractionSource string

const (
	SourceStructural         ExtractionSource = "structural"
	SourceGenerativeFallback ExtractionSource = "generative_fallback"
)

type JobPostingCandidate struct {
	Title        string           `json:"title"`
	Company      string           `json:"company"`
	Location     string           `json:"location"`
	Description  string           `json:"description"`
	SourceURL    string           `json:"source_url"`
	// PageURL is the page the posting was read from. It equals SourceURL when the posting has no link of its own.
	PageURL      string           `json:"page_url,omitempty"`
	IsEntryLevel bool             `json:"is_entry_level"`
	Source       ExtractionSource `json:"source"`
}

// HasOwnURL reports whether the posting links to a page other than the one it was found on.
func (c JobPostingCandidate) HasOwnURL() bool {
	return c.SourceURL != "" && strings.TrimRight(c.SourceURL, "/") != strings.TrimRight(c.PageURL, "/")
}

type ContactRole string

const (
	RoleCEOOrFounder ContactRole = "ceo_or_founder"
	RoleHR           ContactRole = "hr"
	RoleGuessed      ContactRole = "guessed"
)

type ContactConfidence string

const (
	ConfidencePageText    ContactConfidence = "page_text_match"
	ConfidenceContactPage ContactConfidence = "contact_page_regex"
	ConfidenceDomainGuess ContactConfidence = "domain_guess"
)

// ContactCandidate is a possible outreach recipient discovered on (or guessed for) a company site.
// Guessed contacts are unverified address patterns.
type ContactCandidate struct {
	Role       ContactRole       `json:"role"`
	Name       string            `json:"name,omitempty"`
	Email      string            `json:"email,omitempty"`
	Title      string            `json:"title,omitempty"`
	Confidence ContactConfidence `json:"confidence"`
	SourceURL  string            `json:"source_url,omitempty"`
}

func (c ContactCandidate) IsGuessed() bool {
	return c.Role == RoleGuessed || c.Confidence == ConfidenceDomainGuess
}

// IsCEO reports whether the matched title names the chief executive rather than a founder.
func (c ContactCandidate) IsCEO() bool {
	t := strings.ToLower(c.Title)
	return strings.Contains(t, "ceo") || strings.Contains(t, "chief executive")
}

// ScanReport is the result of one company scan. Reports are never merged across scans.
type ScanReport struct {
	ID          uint                  `gorm:"primaryKey" json:"-"`
	CompanyName string                `json:"company_name"`
	URL         string                `gorm:"index" json:"url"`
	CareersURL  string                `json:"careers_url,omitempty"`
	Jobs        []JobPostingCandidate `gorm:"serializer:json" json:"jobs"`
	Contacts    []ContactCandidate    `gorm:"serializer:json" json:"contacts"`
	Size        CompanySize           `json:"size,omitempty"`
	IsStartup   bool                  `json:"is_startup"`
	ScannedAt   time.Time             `gorm:"index" json:"scanned_at"`
	Success     bool                  `json:"success"`
	Error       string                `json:"error,omitempty"`
	// Cached marks a report served again from the scanner cache.
	Cached      bool                  `gorm:"-" json:"cached,omitempty"`
}

// FailedScanReport builds the single shape a failed scan takes: empty lists, no size, an error.
func FailedScanReport(companyName, url string, scannedAt time.Time, reason string) ScanReport {
	return ScanReport{
		CompanyName: companyName,
		URL:         url,
		Jobs:        []JobPostingCandidate{},
		Contacts:    []ContactCandidate{},
		ScannedAt:   scannedAt,
		Success:     false,
		Error:       reason,
	}
}
