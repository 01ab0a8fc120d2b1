package extractor

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/maxaizer/autoapply/internal/domain/models"
	log "github.com/sirupsen/logrus"
)

const maxExcerptLength = 4000

//go:embed prompt_listings.md
var listingsPrompt string

const listingsSystemContext = "You extract job postings from web page text and answer with JSON only."

type generator interface {
	Generate(ctx context.Context, prompt, systemContext string) (string, error)
}

// Extractor combines structural extraction with a generative fallback.
type Extractor struct {
	generator generator
}

// New creates an extractor. A nil generator disables the fallback.
func New(generator generator) *Extractor {
	return &Extractor{generator: generator}
}

// Listings returns structurally extracted postings, or generated ones when the page has no recognizable structure.
// It never fails: any fallback problem yields an empty list.
func (e *Extractor) Listings(ctx context.Context, document, company, pageURL string) []models.JobPostingCandidate {
	listings := ExtractListings(document, company, pageURL)
	if len(listings) > 0 || e.generator == nil {
		return listings
	}

	text := PageText(document)
	if text == "" {
		return listings
	}
	return e.GenerateListings(ctx, text, company, pageURL)
}

func (e *Extractor) GenerateListings(ctx context.Context, pageText, company, pageURL string) []models.JobPostingCandidate {
	if e.generator == nil {
		return []models.JobPostingCandidate{}
	}

	prompt := strings.ReplaceAll(listingsPrompt, "{{COMPANY}}", company)
	prompt = strings.ReplaceAll(prompt, "{{PAGE_TEXT}}", truncate(pageText, maxExcerptLength))

	response, err := e.generator.Generate(ctx, prompt, listingsSystemContext)
	if err != nil {
		log.WithField("url", pageURL).Debugf("generative listing fallback failed: %v", err)
		return []models.JobPostingCandidate{}
	}

	listings := parseGeneratedListings(response, company, pageURL)
	log.WithFields(log.Fields{"url": pageURL, "count": len(listings)}).Debug("generative listing fallback finished")
	return listings
}

type generatedListing struct {
	Title        string `json:"title"`
	Location     string `json:"location"`
	IsEntryLevel bool   `json:"is_entry_level"`
	Description  string `json:"description"`
}

// parseGeneratedListings reads the first well-formed JSON array in a response, ignoring surrounding prose.
func parseGeneratedListings(response, company, pageURL string) []models.JobPostingCandidate {
	result := []models.JobPostingCandidate{}

	raw, ok := firstJSONArray(stripCodeFence(response))
	if !ok {
		return result
	}

	seen := map[string]struct{}{}
	for _, item := range raw {
		title := collapse(item.Title)
		if n := utf8.RuneCountInString(title); n < minTitleLength || n > maxTitleLength {
			continue
		}
		if _, dup := seen[strings.ToLower(title)]; dup {
			continue
		}
		seen[strings.ToLower(title)] = struct{}{}

		description := truncate(collapse(item.Description), maxDescriptionLength)
		result = append(result, models.JobPostingCandidate{
			Title:       title,
			Company:     company,
			Location:    collapse(item.Location),
			Description: description,
			SourceURL:   pageURL,
			PageURL:     pageURL,
			// the classification stays a function of the text, whatever the model claimed
			IsEntryLevel: IsEntryLevel(title, description),
			Source:       models.SourceGenerativeFallback,
		})
	}
	return result
}

func firstJSONArray(text string) ([]generatedListing, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		var items []generatedListing
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&items); err == nil {
			return items, true
		}
	}
	return nil, false
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
