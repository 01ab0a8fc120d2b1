package extractor

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/autoapply/internal/domain/models"
)

const (
	minTitleLength       = 5
	maxTitleLength       = 150
	maxDescriptionLength = 500
)

var (
	listingAttrRegex   = regexp.MustCompile(`(?i)job|position|opening|role|listing|vacanc`)
	layoutClassRegex   = regexp.MustCompile(`(?i)^position-(relative|absolute|fixed|sticky|static)$`)
	titleClassRegex    = regexp.MustCompile(`(?i)title|name|heading`)
	locationRegex      = regexp.MustCompile(`(?i)location|city|place`)
	jobDetailHrefRegex = regexp.MustCompile(`(?i)/(jobs?|careers?|positions?|openings?|vacanc\w*|roles?)/[^/?#]+`)
)

// item-like tags; containers of several postings are built from these
var itemTags = map[string]bool{
	"li": true, "article": true, "div": true, "section": true, "tr": true, "a": true, "dd": true,
}

var ignoredTags = map[string]bool{
	"html": true, "body": true, "head": true, "script": true, "style": true,
	"nav": true, "header": true, "footer": true, "meta": true, "link": true,
}

// ExtractListings finds job postings in a page using DOM heuristics only.
func ExtractListings(document, company, pageURL string) []models.JobPostingCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return []models.JobPostingCandidate{}
	}
	doc.Find("script, style, noscript, svg, template").Remove()

	base, _ := url.Parse(pageURL)
	collector := newListingCollector(company, base)

	var visit func(s *goquery.Selection)
	visit = func(s *goquery.Selection) {
		s.Children().Each(func(_ int, child *goquery.Selection) {
			if !isListingNode(child) {
				visit(child)
				return
			}
			if isContainer(child) {
				visit(child)
				return
			}
			collector.add(child)
		})
	}
	visit(doc.Selection)

	if len(collector.items) == 0 {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if jobDetailHrefRegex.MatchString(href) {
				collector.add(a)
			}
		})
	}

	return collector.items
}

func isListingNode(s *goquery.Selection) bool {
	if ignoredTags[goquery.NodeName(s)] {
		return false
	}
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	for _, token := range strings.Fields(class + " " + id) {
		if listingAttrRegex.MatchString(token) && !layoutClassRegex.MatchString(token) {
			return true
		}
	}
	return false
}

// isContainer reports whether a matched node holds several distinct postings.
func isContainer(s *goquery.Selection) bool {
	titles := map[string]struct{}{}
	s.Find("*").Each(func(_ int, d *goquery.Selection) {
		if !itemTags[goquery.NodeName(d)] || !isListingNode(d) {
			return
		}
		if title := nodeTitle(d); title != "" {
			titles[strings.ToLower(title)] = struct{}{}
		}
	})
	return len(titles) >= 2
}

// nodeTitle returns the nearest heading-like text of a node, or "" when it is not a usable title.
func nodeTitle(s *goquery.Selection) string {
	var candidates []*goquery.Selection
	switch goquery.NodeName(s) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		candidates = append(candidates, s)
	}
	candidates = append(candidates, s.Find("h1, h2, h3, h4, h5, h6").First())
	s.Find("*").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		class, _ := d.Attr("class")
		if titleClassRegex.MatchString(class) {
			candidates = append(candidates, d)
			return false
		}
		return true
	})
	candidates = append(candidates, s.Find("a").First())
	if goquery.NodeName(s) == "a" {
		candidates = append(candidates, s)
	}

	for _, c := range candidates {
		if c.Length() == 0 {
			continue
		}
		title := collapse(c.Text())
		if n := utf8.RuneCountInString(title); n >= minTitleLength && n <= maxTitleLength {
			return title
		}
	}
	return ""
}

type listingCollector struct {
	company string
	base    *url.URL
	seen    map[string]struct{}
	items   []models.JobPostingCandidate
}

func newListingCollector(company string, base *url.URL) *listingCollector {
	return &listingCollector{
		company: company,
		base:    base,
		seen:    map[string]struct{}{},
		items:   []models.JobPostingCandidate{},
	}
}

func (c *listingCollector) add(s *goquery.Selection) {
	title := nodeTitle(s)
	if title == "" {
		return
	}

	link := c.resolve(nodeHref(s))
	key := strings.ToLower(title) + "|" + link
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}

	description := truncate(collapse(s.Text()), maxDescriptionLength)
	c.items = append(c.items, models.JobPostingCandidate{
		Title:        title,
		Company:      c.company,
		Location:     nodeLocation(s),
		Description:  description,
		SourceURL:    link,
		PageURL:      c.pageURL(),
		IsEntryLevel: IsEntryLevel(title, description),
		Source:       models.SourceStructural,
	})
}

func (c *listingCollector) pageURL() string {
	if c.base == nil {
		return ""
	}
	return c.base.String()
}

func (c *listingCollector) resolve(href string) string {
	if c.base == nil {
		return href
	}
	if href == "" {
		return c.base.String()
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return c.base.String()
	}
	return c.base.ResolveReference(ref).String()
}

func nodeHref(s *goquery.Selection) string {
	if goquery.NodeName(s) == "a" {
		if href, ok := s.Attr("href"); ok {
			return href
		}
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	if href, ok := s.Closest("a[href]").Attr("href"); ok {
		return href
	}
	return ""
}

func nodeLocation(s *goquery.Selection) string {
	var location string
	s.Find("*").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		class, _ := d.Attr("class")
		if locationRegex.MatchString(class) {
			location = truncate(collapse(d.Text()), 100)
			return false
		}
		return true
	})
	if location == "" && strings.Contains(strings.ToLower(s.Text()), "remote") {
		location = "Remote"
	}
	return location
}
