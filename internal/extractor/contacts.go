package extractor

import (
	"regexp"
	"strings"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/samber/lo"
)

const (
	emailWindow = 200
	nameWindow  = 60
)

var (
	emailRegex      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)
	leadershipRegex = regexp.MustCompile(`(?i)\b(co-?founder\s*(?:&|and)\s*ceo|ceo\s*(?:&|and)\s*co-?founder|co-?founder|founder|chief executive officer|ceo)\b`)
	nameBeforeRegex = regexp.MustCompile(`([A-Z][a-z'’\-]+(?:\s+[A-Z][a-z'’\-]+){1,2})\s*[,\-–—|:(]?\s*$`)
	nameAfterRegex  = regexp.MustCompile(`^\s*[,\-–—|:)]?\s*([A-Z][a-z'’\-]+(?:\s+[A-Z][a-z'’\-]+){1,2})`)
	hrLocalRegex    = regexp.MustCompile(`(?i)^(hr|careers?|jobs?|recruit(ing|ment|er)?|talent|hiring|people|apply)([._+\-].*)?$`)
	assetSuffix     = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|webp|css|js)$`)
)

// GuessPrefixes are tried in priority order when nothing is found on the site.
var GuessPrefixes = []string{"hr", "careers", "ceo", "founder", "hello", "info"}

// ExtractLeadership finds CEO and founder mentions in page text. An address is taken from
// the window following the matched name or title.
func ExtractLeadership(pageText, pageURL string) []models.ContactCandidate {
	var contacts []models.ContactCandidate
	seen := map[string]struct{}{}

	for _, loc := range leadershipRegex.FindAllStringIndex(pageText, -1) {
		if partOfAddress(pageText, loc[0], loc[1]) {
			continue
		}
		title := collapse(pageText[loc[0]:loc[1]])
		windowStart := loc[1]

		name := ""
		before := pageText[max(0, loc[0]-nameWindow):loc[0]]
		if m := nameBeforeRegex.FindStringSubmatch(lastLine(before)); m != nil {
			name = m[1]
		} else if m := nameAfterRegex.FindStringSubmatchIndex(pageText[loc[1]:]); m != nil {
			name = pageText[loc[1]+m[2] : loc[1]+m[3]]
			windowStart = loc[1] + m[1]
		}

		window := pageText[windowStart:min(len(pageText), windowStart+emailWindow)]
		email := firstEmail(window)
		if name == "" && email == "" {
			continue
		}

		key := strings.ToLower(name + "|" + email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		contacts = append(contacts, models.ContactCandidate{
			Role:       models.RoleCEOOrFounder,
			Name:       name,
			Email:      email,
			Title:      title,
			Confidence: models.ConfidencePageText,
			SourceURL:  pageURL,
		})
	}
	return contacts
}

// ExtractHRContacts collects hiring-related addresses from page text, including mailto links.
func ExtractHRContacts(pageText, pageURL string) []models.ContactCandidate {
	var contacts []models.ContactCandidate
	for _, email := range lo.Uniq(findEmails(pageText)) {
		local := email[:strings.IndexByte(email, '@')]
		if !hrLocalRegex.MatchString(local) {
			continue
		}
		contacts = append(contacts, models.ContactCandidate{
			Role:       models.RoleHR,
			Email:      email,
			Confidence: models.ConfidenceContactPage,
			SourceURL:  pageURL,
		})
	}
	return contacts
}

// GuessContacts builds unverified addresses from common prefixes at the site domain.
func GuessContacts(domain string) []models.ContactCandidate {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain == "" || !strings.Contains(domain, ".") {
		return []models.ContactCandidate{}
	}
	return lo.Map(GuessPrefixes, func(prefix string, _ int) models.ContactCandidate {
		return models.ContactCandidate{
			Role:       models.RoleGuessed,
			Email:      prefix + "@" + domain,
			Confidence: models.ConfidenceDomainGuess,
		}
	})
}

func findEmails(text string) []string {
	var emails []string
	for _, match := range emailRegex.FindAllString(text, -1) {
		match = strings.ToLower(strings.TrimRight(match, "."))
		if assetSuffix.MatchString(match) {
			continue
		}
		emails = append(emails, match)
	}
	return emails
}

func firstEmail(text string) string {
	if emails := findEmails(text); len(emails) > 0 {
		return emails[0]
	}
	return ""
}

// partOfAddress reports whether a match is the local part or domain of an e-mail address or URL.
func partOfAddress(text string, start, end int) bool {
	if end < len(text) && text[end] == '@' {
		return true
	}
	if end+1 < len(text) && text[end] == '.' && isLetter(text[end+1]) {
		return true
	}
	return start > 0 && strings.ContainsRune("@./", rune(text[start-1]))
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// lastLine returns the last non-empty line of text.
func lastLine(text string) string {
	text = strings.TrimRight(text, " \t\n")
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return text[i+1:]
	}
	return text
}
