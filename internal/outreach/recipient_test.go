package outreach

import (
	"testing"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hr(email string) models.ContactCandidate {
	return models.ContactCandidate{Role: models.RoleHR, Email: email, Confidence: models.ConfidenceContactPage}
}

func leader(name, title, email string) models.ContactCandidate {
	return models.ContactCandidate{
		Role: models.RoleCEOOrFounder, Name: name, Title: title, Email: email, Confidence: models.ConfidencePageText,
	}
}

func Test_SelectRecipient_WhenNoCEOButHR_ShouldPickHR(t *testing.T) {
	recipient, err := SelectRecipient([]models.ContactCandidate{leader("Jane Doe", "CEO", ""), hr("hr@x.com")})

	require.NoError(t, err)
	assert.Equal(t, models.RoleHR, recipient.Role)
	assert.Equal(t, "hr@x.com", recipient.Email)
}

func Test_SelectRecipient_WhenCEOAndHR_ShouldPickCEO(t *testing.T) {
	recipient, err := SelectRecipient([]models.ContactCandidate{hr("hr@x.com"), leader("", "CEO", "c@x.com")})

	require.NoError(t, err)
	assert.Equal(t, models.RoleCEOOrFounder, recipient.Role)
	assert.Equal(t, "c@x.com", recipient.Email)
}

func Test_SelectRecipient_ShouldPreferExplicitCEOOverEarlierFounder(t *testing.T) {
	contacts := []models.ContactCandidate{
		leader("John Smith", "Founder", "john@x.com"),
		leader("Ann Lee", "Co-Founder", "ann@x.com"),
		leader("Jane Doe", "Chief Executive Officer", "jane@x.com"),
	}

	recipient, err := SelectRecipient(contacts)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", recipient.Email)

	recipient, err = SelectRecipient(contacts[:2])
	require.NoError(t, err)
	assert.Equal(t, "john@x.com", recipient.Email, "first founder wins without a CEO")
}

func Test_SelectRecipient_WhenOnlyGuesses_ShouldUsePrefixPriority(t *testing.T) {
	guesses := extractor.GuessContacts("x.com")
	reversed := make([]models.ContactCandidate, len(guesses))
	for i, g := range guesses {
		reversed[len(guesses)-1-i] = g
	}

	recipient, err := SelectRecipient(reversed)

	require.NoError(t, err)
	assert.Equal(t, "hr@x.com", recipient.Email)
	assert.True(t, recipient.IsGuessed())
}

func Test_SelectRecipient_WhenNothingReachable_ShouldReturnErrNoRecipient(t *testing.T) {
	_, err := SelectRecipient(nil)
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = SelectRecipient([]models.ContactCandidate{leader("Jane Doe", "CEO", "")})
	assert.ErrorIs(t, err, ErrNoRecipient)
}
