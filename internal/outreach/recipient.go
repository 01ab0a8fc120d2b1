package outreach

import (
	"errors"
	"strings"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/extractor"
	"github.com/samber/lo"
)

var ErrNoRecipient = errors.New("no recipient available")

type recipientTier func(contacts []models.ContactCandidate) (models.ContactCandidate, bool)

// recipient cascade, highest priority first
var recipientTiers = []recipientTier{
	firstWhere(func(c models.ContactCandidate) bool { return c.Role == models.RoleCEOOrFounder && c.IsCEO() }),
	firstWhere(func(c models.ContactCandidate) bool { return c.Role == models.RoleCEOOrFounder }),
	firstWhere(func(c models.ContactCandidate) bool { return c.Role == models.RoleHR }),
	bestGuess,
}

// SelectRecipient picks the outreach recipient. Contacts without an address are never selected.
func SelectRecipient(contacts []models.ContactCandidate) (models.ContactCandidate, error) {
	reachable := lo.Filter(contacts, func(c models.ContactCandidate, _ int) bool {
		return strings.Contains(c.Email, "@")
	})
	for _, tier := range recipientTiers {
		if c, ok := tier(reachable); ok {
			return c, nil
		}
	}
	return models.ContactCandidate{}, ErrNoRecipient
}

func firstWhere(predicate func(models.ContactCandidate) bool) recipientTier {
	return func(contacts []models.ContactCandidate) (models.ContactCandidate, bool) {
		return lo.Find(contacts, predicate)
	}
}

func bestGuess(contacts []models.ContactCandidate) (models.ContactCandidate, bool) {
	guesses := lo.Filter(contacts, func(c models.ContactCandidate, _ int) bool { return c.IsGuessed() })
	if len(guesses) == 0 {
		return models.ContactCandidate{}, false
	}
	return lo.MinBy(guesses, func(a, b models.ContactCandidate) bool {
		return guessRank(a.Email) < guessRank(b.Email)
	}), true
}

func guessRank(email string) int {
	local := strings.ToLower(email)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if i := lo.IndexOf(extractor.GuessPrefixes, local); i >= 0 {
		return i
	}
	return len(extractor.GuessPrefixes)
}
