package scanner

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maxaizer/autoapply/internal/domain/models"
)

var headcountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bteam of\s+(?:over\s+|about\s+|around\s+|more than\s+)?(\d[\d,]*)\+?`),
	regexp.MustCompile(`(?i)\b(\d[\d,]*)\+?\s+(?:employees|people|team members|staff|colleagues|teammates)\b`),
}

var (
	startupIndicators = []string{
		"startup", "start-up", "early-stage", "early stage", "seed round", "pre-seed", "series a",
		"series b", "y combinator", "venture-backed", "backed by", "small team", "founded in 20",
	}
	enterpriseIndicators = []string{
		"fortune 500", "global leader", "worldwide", "multinational", "offices in", "nasdaq", "nyse",
		"subsidiaries", "enterprise-grade", "countries", "industry leader",
	}
)

type sizeStrategy func(text string) (models.CompanySize, bool)

// ClassifySize tries an explicit headcount first and falls back to keyword density.
func ClassifySize(text string) (models.CompanySize, bool) {
	for _, strategy := range []sizeStrategy{sizeFromHeadcount, sizeFromKeywords} {
		if size, ok := strategy(text); ok {
			return size, size == models.SizeStartup
		}
	}
	return models.SizeSmall, false
}

func sizeFromHeadcount(text string) (models.CompanySize, bool) {
	for _, pattern := range headcountPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil || n <= 0 {
			continue
		}
		return sizeForHeadcount(n), true
	}
	return "", false
}

func sizeForHeadcount(n int) models.CompanySize {
	switch {
	case n < 50:
		return models.SizeStartup
	case n < 250:
		return models.SizeSmall
	case n < 1000:
		return models.SizeMedium
	default:
		return models.SizeLarge
	}
}

func sizeFromKeywords(text string) (models.CompanySize, bool) {
	text = strings.ToLower(text)
	startup := countIndicators(text, startupIndicators)
	enterprise := countIndicators(text, enterpriseIndicators)

	switch {
	case startup >= 2 && startup >= enterprise:
		return models.SizeStartup, true
	case enterprise >= 2:
		return models.SizeLarge, true
	case startup == 1 && enterprise == 0:
		return models.SizeSmall, true
	case enterprise == 1 && startup == 0:
		return models.SizeMedium, true
	default:
		return "", false
	}
}

func countIndicators(text string, indicators []string) int {
	count := 0
	for _, indicator := range indicators {
		count += strings.Count(text, indicator)
	}
	return count
}
