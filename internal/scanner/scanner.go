package scanner

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/autoapply/internal/clients/web"
	"github.com/maxaizer/autoapply/internal/config"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/extractor"
	"github.com/maxaizer/autoapply/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

// CareersPaths are probed in order; the first existing one is the careers page.
var CareersPaths = []string{
	"/careers", "/jobs", "/join-us", "/join", "/work-with-us", "/about/careers",
	"/company/careers", "/en/careers", "/vacancies", "/hiring", "/open-positions",
}

// ContactPaths are fetched for contact discovery.
var ContactPaths = []string{
	"/about", "/about-us", "/team", "/our-team", "/company", "/leadership",
	"/people", "/contact", "/contact-us",
}

var careersAnchorRegex = regexp.MustCompile(`(?i)career|jobs?\b|join (us|our team)|hiring|vacanc|work with us|open (positions|roles)`)

type fetcher interface {
	Exists(ctx context.Context, url string) (bool, error)
	Fetch(ctx context.Context, url string) (web.Page, error)
}

type listingExtractor interface {
	Listings(ctx context.Context, document, company, pageURL string) []models.JobPostingCandidate
}

type Scanner struct {
	fetcher     fetcher
	extractor   listingExtractor
	scanTimeout time.Duration
	cache       *gocache.Cache
	now         func() time.Time
}

func NewScanner(fetcher fetcher, extractor listingExtractor, cfg config.ScannerConfig) *Scanner {
	s := &Scanner{
		fetcher:     fetcher,
		extractor:   extractor,
		scanTimeout: cfg.ScanTimeout,
		now:         time.Now,
	}
	if cfg.CacheTTL > 0 {
		s.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return s
}

// Scan runs one end-to-end scan. It never fails: problems are reported with Success set to false.
func (s *Scanner) Scan(ctx context.Context, rawURL, companyName string) models.ScanReport {
	started := s.now()

	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		metrics.ScansCounter.WithLabelValues("failed").Inc()
		return models.FailedScanReport(companyName, strings.TrimSpace(rawURL), started, err.Error())
	}
	if companyName == "" {
		companyName = CompanyNameFromURL(normalized)
	}

	if s.cache != nil {
		if cached, found := s.cache.Get(normalized); found {
			metrics.ScansCounter.WithLabelValues("cached").Inc()
			report := cached.(models.ScanReport)
			report.CompanyName = companyName
			report.Cached = true
			return report
		}
	}

	if s.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scanTimeout)
		defer cancel()
	}

	report := s.scan(ctx, normalized, companyName, started)
	metrics.ScanDuration.Observe(time.Since(started).Seconds())

	if !report.Success {
		metrics.ScansCounter.WithLabelValues("failed").Inc()
		log.WithField("url", normalized).Warnf("scan failed: %s", report.Error)
		return report
	}

	metrics.ScansCounter.WithLabelValues("ok").Inc()
	if s.cache != nil {
		s.cache.Set(normalized, report, gocache.DefaultExpiration)
	}
	log.WithFields(log.Fields{
		"url":      normalized,
		"jobs":     len(report.Jobs),
		"contacts": len(report.Contacts),
		"size":     report.Size,
	}).Info("scan completed")
	return report
}

func (s *Scanner) scan(ctx context.Context, normalized, companyName string, started time.Time) models.ScanReport {
	homepage, err := s.fetcher.Fetch(ctx, normalized)
	if err != nil {
		return models.FailedScanReport(companyName, normalized, started, "homepage unreachable: "+err.Error())
	}
	homeText := extractor.PageText(homepage.Body)

	var (
		wg         sync.WaitGroup
		careersURL string
		jobs       []models.JobPostingCandidate
		careersHR  []models.ContactCandidate
		contacts   contactFindings
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		careersURL, jobs, careersHR = s.discoverJobs(ctx, normalized, companyName, homepage)
	}()
	go func() {
		defer wg.Done()
		contacts = s.discoverContacts(ctx, normalized)
	}()

	size, isStartup := ClassifySize(homeText)
	wg.Wait()

	if err = ctx.Err(); err != nil {
		reason := "scan cancelled"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "scan timed out"
		}
		return models.FailedScanReport(companyName, normalized, started, reason)
	}

	if jobs == nil {
		jobs = []models.JobPostingCandidate{}
	}
	contacts.hr = append(contacts.hr, careersHR...)
	contacts.hr = append(contacts.hr, extractor.ExtractHRContacts(homeText, homepage.URL)...)

	return models.ScanReport{
		CompanyName: companyName,
		URL:         normalized,
		CareersURL:  careersURL,
		Jobs:        jobs,
		Contacts:    contacts.merge(domainOf(normalized)),
		Size:        size,
		IsStartup:   isStartup,
		ScannedAt:   started,
		Success:     true,
	}
}

func (s *Scanner) discoverJobs(ctx context.Context, base, company string, homepage web.Page) (string, []models.JobPostingCandidate, []models.ContactCandidate) {
	careersURL := s.findCareersPage(ctx, base, homepage)
	if careersURL == "" {
		return "", []models.JobPostingCandidate{}, nil
	}

	page, err := s.fetcher.Fetch(ctx, careersURL)
	if err != nil {
		log.WithField("url", careersURL).Debugf("careers page fetch failed: %v", err)
		return careersURL, []models.JobPostingCandidate{}, nil
	}

	jobs := s.extractor.Listings(ctx, page.Body, company, page.URL)
	return careersURL, jobs, extractor.ExtractHRContacts(extractor.PageText(page.Body), page.URL)
}

func (s *Scanner) findCareersPage(ctx context.Context, base string, homepage web.Page) string {
	for _, path := range CareersPaths {
		if ctx.Err() != nil {
			return ""
		}
		candidate := join(base, path)
		// unreachable and timed out paths count as absent
		if ok, err := s.fetcher.Exists(ctx, candidate); err == nil && ok {
			return candidate
		}
	}
	return careersLinkFromHomepage(homepage)
}

// careersLinkFromHomepage returns the first same-site link whose text or href looks career related.
func careersLinkFromHomepage(homepage web.Page) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(homepage.Body))
	if err != nil {
		return ""
	}
	base, err := url.Parse(homepage.URL)
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !careersAnchorRegex.MatchString(href) && !careersAnchorRegex.MatchString(a.Text()) {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		found = resolved.String()
		return false
	})
	return found
}

type contactFindings struct {
	leadership []models.ContactCandidate
	hr         []models.ContactCandidate
}

func (s *Scanner) discoverContacts(ctx context.Context, base string) contactFindings {
	var findings contactFindings
	for _, path := range ContactPaths {
		if ctx.Err() != nil {
			break
		}
		page, err := s.fetcher.Fetch(ctx, join(base, path))
		if err != nil {
			continue
		}
		text := extractor.PageText(page.Body)
		findings.leadership = append(findings.leadership, extractor.ExtractLeadership(text, page.URL)...)
		findings.hr = append(findings.hr, extractor.ExtractHRContacts(text, page.URL)...)
	}
	return findings
}

// merge orders contacts leadership first, then HR. Guesses are added only when no address was found.
func (f contactFindings) merge(domain string) []models.ContactCandidate {
	contacts := []models.ContactCandidate{}
	seen := map[string]struct{}{}
	hasEmail := false

	for _, c := range append(f.leadership, f.hr...) {
		key := string(c.Role) + "|" + strings.ToLower(c.Name) + "|" + c.Email
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		contacts = append(contacts, c)
		hasEmail = hasEmail || c.Email != ""
	}

	if !hasEmail {
		contacts = append(contacts, extractor.GuessContacts(domain)...)
	}
	return contacts
}
