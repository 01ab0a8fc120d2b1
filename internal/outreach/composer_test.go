package outreach

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

var (
	applicant = models.ApplicantProfile{
		UserID: 1, Name: "Alex Kim", Email: "alex@example.com",
		Headline: "Junior backend developer", Skills: []string{"Go", "PostgreSQL", "Rust"},
	}
	job = models.Job{
		Title: "Junior Go Developer", Company: "Acme", Location: "Berlin",
		Description: "Go services backed by PostgreSQL.",
	}
	contacts = []models.ContactCandidate{hr("careers@acme.io")}
)

func Test_Compose_WhenGeneratorWorks_ShouldUseGeneratedText(t *testing.T) {
	gen := &stubGenerator{text: "Hello Hiring Team,\n\nI love Go.\n\nKind regards,\nAlex Kim"}

	content, err := NewComposer(gen).Compose(context.Background(), applicant, job, contacts, "")

	require.NoError(t, err)
	assert.True(t, content.Generated)
	assert.Equal(t, gen.text, content.CoverLetter)
	assert.Equal(t, "careers@acme.io", content.Recipient.Email)
	assert.Equal(t, 0.8, content.Confidence)
	assert.Contains(t, gen.prompt, "Junior Go Developer")
	assert.Contains(t, gen.prompt, "Alex Kim")
	assert.Contains(t, gen.prompt, "the hiring team")
}

func Test_Compose_WhenGeneratedTextLacksFraming_ShouldInsertIt(t *testing.T) {
	gen := &stubGenerator{text: "I have built Go services for two years."}

	content, err := NewComposer(gen).Compose(context.Background(), applicant, job, contacts, "")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content.CoverLetter, "Dear Hiring Team,\n\n"))
	assert.True(t, strings.HasSuffix(content.CoverLetter, "Best regards,\nAlex Kim"))
}

func Test_Compose_WhenGeneratorFails_ShouldFallBackToTemplate(t *testing.T) {
	for _, gen := range []*stubGenerator{{err: errors.New("timeout")}, {text: "   "}} {
		content, err := NewComposer(gen).Compose(context.Background(), applicant, job, contacts, "Available from May.")

		require.NoError(t, err)
		assert.False(t, content.Generated)
		assert.Equal(t, 0.68, content.Confidence)
		assert.True(t, strings.HasPrefix(content.CoverLetter, "Dear Hiring Team,"))
		assert.Contains(t, content.CoverLetter, "Junior Go Developer position at Acme")
		assert.Contains(t, content.CoverLetter, "Go, PostgreSQL")
		assert.True(t, strings.HasSuffix(content.CoverLetter, "P.S. Available from May."))
	}
}

func Test_Compose_WhenNoRecipient_ShouldFail(t *testing.T) {
	_, err := NewComposer(nil).Compose(context.Background(), applicant, job, nil, "")
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func Test_TemplatePitch_ShouldBeDeterministic(t *testing.T) {
	recipient := leader("Jane Doe", "CEO", "jane@acme.io")

	first := TemplatePitch(applicant, job, recipient)

	assert.Equal(t, first, TemplatePitch(applicant, job, recipient))
	assert.True(t, strings.HasPrefix(first, "Dear Jane Doe,"))
}

func Test_CVCustomizations_ShouldHighlightSkillsMentionedByJob(t *testing.T) {
	customizations := CVCustomizations(applicant, job)

	assert.Equal(t, "Go, PostgreSQL", customizations["highlighted_skills"])
	assert.Equal(t, "Junior backend developer | Junior Go Developer", customizations["headline"])
	assert.Equal(t, "Junior Go Developer", customizations["target_role"])
}

func Test_Subject(t *testing.T) {
	assert.Equal(t, "Application for Junior Go Developer at Acme - Alex Kim", Subject(applicant, job))
}
