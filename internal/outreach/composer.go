package outreach

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

//go:embed prompt_pitch.md
var pitchPrompt string

const (
	pitchSystemContext  = "You write concise, honest job application e-mails."
	maxPromptDescLength = 1500
)

var (
	greetingRegex = regexp.MustCompile(`(?i)^(dear|hello|hi|hey|greetings|good (morning|afternoon|evening))\b`)
	closingRegex  = regexp.MustCompile(`(?i)^(best|kind|warm|warmest)?\s*(regards|wishes)|^(sincerely|yours|thank you|thanks|cheers|best)\b`)
)

var recipientConfidence = map[models.ContactConfidence]float64{
	models.ConfidencePageText:    0.9,
	models.ConfidenceContactPage: 0.8,
	models.ConfidenceDomainGuess: 0.4,
}

type generator interface {
	Generate(ctx context.Context, prompt, systemContext string) (string, error)
}

// Content is the drafted outreach for one job.
type Content struct {
	Recipient        models.ContactCandidate `json:"recipient"`
	Subject          string                  `json:"subject"`
	CoverLetter      string                  `json:"cover_letter"`
	CVCustomizations map[string]string       `json:"cv_customizations"`
	Confidence       float64                 `json:"confidence"`
	Generated        bool                    `json:"generated"`
}

type Composer struct {
	generator generator
}

// NewComposer creates a composer. A nil generator always uses the template.
func NewComposer(generator generator) *Composer {
	return &Composer{generator: generator}
}

// Compose selects a recipient and drafts the letter. It fails only when no recipient exists;
// generation problems fall back to the template.
func (c *Composer) Compose(ctx context.Context, applicant models.ApplicantProfile, job models.Job,
	contacts []models.ContactCandidate, message string) (Content, error) {

	recipient, err := SelectRecipient(contacts)
	if err != nil {
		return Content{}, err
	}

	letter, generated := c.Pitch(ctx, applicant, job, recipient)
	if message = strings.TrimSpace(message); message != "" {
		letter += "\n\nP.S. " + message
	}

	return Content{
		Recipient:        recipient,
		Subject:          Subject(applicant, job),
		CoverLetter:      letter,
		CVCustomizations: CVCustomizations(applicant, job),
		Confidence:       confidence(recipient, generated),
		Generated:        generated,
	}, nil
}

// Pitch returns the cover letter and whether it came from the generator.
func (c *Composer) Pitch(ctx context.Context, applicant models.ApplicantProfile, job models.Job,
	recipient models.ContactCandidate) (string, bool) {

	if c.generator != nil {
		text, err := c.generator.Generate(ctx, buildPrompt(applicant, job, recipient), pitchSystemContext)
		text = strings.TrimSpace(text)
		if err == nil && text != "" {
			return EnsureFraming(text, greetingName(recipient), applicant.Name), true
		}
		log.WithField("company", job.Company).Debugf("pitch generation failed, using template: %v", err)
	}
	return TemplatePitch(applicant, job, recipient), false
}

func buildPrompt(applicant models.ApplicantProfile, job models.Job, recipient models.ContactCandidate) string {
	return strings.NewReplacer(
		"{{RECIPIENT}}", lo.Ternary(recipient.Name != "", recipient.Name, "the hiring team"),
		"{{COMPANY}}", job.Company,
		"{{APPLICANT_NAME}}", applicant.Name,
		"{{HEADLINE}}", applicant.Headline,
		"{{SKILLS}}", strings.Join(applicant.Skills, ", "),
		"{{SUMMARY}}", applicant.Summary,
		"{{JOB_TITLE}}", job.Title,
		"{{JOB_LOCATION}}", lo.Ternary(job.Location != "", job.Location, "not stated"),
		"{{JOB_DESCRIPTION}}", truncateRunes(job.Description, maxPromptDescLength),
	).Replace(pitchPrompt)
}

// EnsureFraming inserts a greeting and a closing when the text lacks them.
func EnsureFraming(text, greetingName, signature string) string {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return text
	}

	if !greetingRegex.MatchString(lines[0]) {
		text = "Dear " + greetingName + ",\n\n" + text
	}

	hasClosing := false
	for _, line := range lines[max(0, len(lines)-3):] {
		if closingRegex.MatchString(line) {
			hasClosing = true
			break
		}
	}
	if !hasClosing {
		text += "\n\nBest regards,\n" + signature
	}
	return text
}

// TemplatePitch is the deterministic letter used when generation is unavailable.
func TemplatePitch(applicant models.ApplicantProfile, job models.Job, recipient models.ContactCandidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dear %s,\n\n", greetingName(recipient))
	fmt.Fprintf(&sb, "I am writing to express my interest in the %s position at %s.", job.Title, job.Company)
	if applicant.Headline != "" {
		fmt.Fprintf(&sb, " I am a %s.", strings.TrimSuffix(applicant.Headline, "."))
	}
	sb.WriteString("\n\n")

	if skills := relevantSkills(applicant, job); len(skills) > 0 {
		fmt.Fprintf(&sb, "My experience with %s matches what the role asks for, ", strings.Join(skills, ", "))
	} else {
		sb.WriteString("I am eager to learn quickly, ")
	}
	fmt.Fprintf(&sb, "and I would welcome the chance to contribute to %s.", job.Company)
	if applicant.Summary != "" {
		fmt.Fprintf(&sb, " %s", strings.TrimSpace(applicant.Summary))
	}

	sb.WriteString("\n\nThank you for your time and consideration. I would be glad to talk about how I can help your team.")
	fmt.Fprintf(&sb, "\n\nBest regards,\n%s", applicant.Name)
	return sb.String()
}

func Subject(applicant models.ApplicantProfile, job models.Job) string {
	subject := "Application for " + job.Title
	if job.Company != "" {
		subject += " at " + job.Company
	}
	if applicant.Name != "" {
		subject += " - " + applicant.Name
	}
	return subject
}

func CVCustomizations(applicant models.ApplicantProfile, job models.Job) map[string]string {
	customizations := map[string]string{"target_role": job.Title}
	if applicant.Headline != "" {
		customizations["headline"] = applicant.Headline + " | " + job.Title
	} else {
		customizations["headline"] = job.Title
	}
	if skills := relevantSkills(applicant, job); len(skills) > 0 {
		customizations["highlighted_skills"] = strings.Join(skills, ", ")
	}
	return customizations
}

// relevantSkills returns the applicant skills mentioned by the job, in the applicant's order.
func relevantSkills(applicant models.ApplicantProfile, job models.Job) []string {
	text := strings.ToLower(job.Title + " " + job.Description + " " + strings.Join(job.Skills, " "))
	return lo.Filter(applicant.Skills, func(skill string, _ int) bool {
		skill = strings.ToLower(strings.TrimSpace(skill))
		return skill != "" && strings.Contains(text, skill)
	})
}

func confidence(recipient models.ContactCandidate, generated bool) float64 {
	score, ok := recipientConfidence[recipient.Confidence]
	if !ok {
		score = 0.5
	}
	if !generated {
		score *= 0.85
	}
	return math.Round(score*100) / 100
}

func greetingName(recipient models.ContactCandidate) string {
	if recipient.Name != "" {
		return recipient.Name
	}
	return "Hiring Team"
}

func nonEmptyLines(text string) []string {
	return lo.FilterMap(strings.Split(text, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, line != ""
	})
}

func truncateRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
