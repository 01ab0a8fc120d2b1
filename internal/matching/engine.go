package matching

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/samber/lo"
)

const (
	WeightSkills     = 0.35
	WeightExperience = 0.20
	WeightLocation   = 0.20
	WeightSalary     = 0.15
	WeightSource     = 0.10

	MinReasonContribution = 0.05
	MaxReasons            = 3
)

var seniorTitleRegex = regexp.MustCompile(`(?i)\b(senior|sr\.?|lead|principal|staff|head of|director|vp|chief)\b`)

type component struct {
	weight float64
	score  float64
	reason string
}

func (c component) contribution() float64 {
	return c.weight * c.score
}

// Match scores a job against the criteria. It is pure: the same inputs always give the same result.
func Match(job models.Job, criteria models.MatchCriteria) models.JobMatch {
	if criteria.IsExcluded(job.Company) {
		return models.JobMatch{Job: job, Reasons: []string{"Company is on the exclusion list"}}
	}

	skills := skillsComponent(job, criteria)
	location := locationComponent(job, criteria)
	components := []component{
		skills,
		experienceComponent(job, criteria),
		location,
		salaryComponent(job, criteria),
		sourceComponent(job),
	}

	total := 0.0
	for _, c := range components {
		total += c.contribution()
	}
	score := clamp(total)

	auto := score * (0.5 + 0.5*math.Min(skills.score, location.score))
	if criteria.RemoteOnly && !job.Remote {
		auto = 0
	}

	return models.JobMatch{
		Job:            job,
		Score:          round(score),
		AutoApplyScore: round(clamp(math.Min(auto, score))),
		Reasons:        reasons(components),
	}
}

// Rank scores all jobs and returns those reaching the criteria minimum, best first.
func Rank(jobs []models.Job, criteria models.MatchCriteria) []models.JobMatch {
	matches := lo.FilterMap(jobs, func(job models.Job, _ int) (models.JobMatch, bool) {
		job.EnsureKey()
		m := Match(job, criteria)
		return m, m.Score > 0 && m.Score >= criteria.MinScore
	})
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].AutoApplyScore > matches[j].AutoApplyScore
	})
	return matches
}

// PassesAutoApply reports whether a match may be submitted without approval. It also requires
// the plain minimum, so nothing auto-applies that would not pass matching.
func PassesAutoApply(m models.JobMatch, minScore, autoThreshold float64) bool {
	return m.Score > 0 && m.Score >= minScore && m.AutoApplyScore >= autoThreshold
}

func reasons(components []component) []string {
	eligible := lo.Filter(components, func(c component, _ int) bool {
		return c.contribution() >= MinReasonContribution && c.reason != ""
	})
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].contribution() > eligible[j].contribution()
	})
	if len(eligible) > MaxReasons {
		eligible = eligible[:MaxReasons]
	}
	return lo.Map(eligible, func(c component, _ int) string { return c.reason })
}

func skillsComponent(job models.Job, criteria models.MatchCriteria) component {
	required := lo.Uniq(lo.FilterMap(criteria.RequiredSkills, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	}))
	if len(required) == 0 {
		return component{weight: WeightSkills, score: 0.5, reason: "No required skills to compare"}
	}

	text := strings.ToLower(job.Title + " " + job.Description + " " + strings.Join(job.Skills, " "))
	matched := lo.Filter(required, func(skill string, _ int) bool {
		return containsTerm(text, skill)
	})

	score := float64(len(matched)) / float64(len(required))
	reason := ""
	if len(matched) > 0 {
		reason = fmt.Sprintf("Matches %d of %d required skills (%s)", len(matched), len(required), strings.Join(matched, ", "))
	}
	return component{weight: WeightSkills, score: score, reason: reason}
}

func experienceComponent(job models.Job, criteria models.MatchCriteria) component {
	senior := seniorTitleRegex.MatchString(job.Title)
	c := component{weight: WeightExperience}

	switch criteria.Level() {
	case models.LevelAny:
		c.score, c.reason = 1, "Any experience level accepted"
	case models.LevelSenior:
		switch {
		case senior:
			c.score, c.reason = 1, "Senior role fits target level"
		case job.IsEntryLevel:
			c.score = 0.1
		default:
			c.score, c.reason = 0.5, "Role level partially fits"
		}
	case models.LevelMid:
		switch {
		case senior:
			c.score, c.reason = 0.5, "Role may expect more experience"
		case job.IsEntryLevel:
			c.score, c.reason = 0.6, "Entry-level role, below target level"
		default:
			c.score, c.reason = 1, "Mid-level role fits target level"
		}
	default:
		switch {
		case job.IsEntryLevel:
			c.score, c.reason = 1, "Entry-level role fits target level"
		case senior:
			c.score = 0
		default:
			c.score, c.reason = 0.4, "Role level not stated as entry level"
		}
	}
	return c
}

func locationComponent(job models.Job, criteria models.MatchCriteria) component {
	c := component{weight: WeightLocation}
	location := strings.ToLower(job.Location)

	if criteria.RemoteOnly {
		if job.Remote {
			c.score, c.reason = 1, "Remote position"
		}
		return c
	}

	preferred := lo.Filter(criteria.PreferredLocations, func(l string, _ int) bool { return strings.TrimSpace(l) != "" })
	if len(preferred) == 0 {
		if job.Remote {
			c.score, c.reason = 1, "Remote position"
		} else {
			c.score, c.reason = 0.7, "No location preference"
		}
		return c
	}

	for _, l := range preferred {
		l = strings.ToLower(strings.TrimSpace(l))
		if (l == "remote" && job.Remote) || (location != "" && containsTerm(location, l)) {
			c.score, c.reason = 1, "Location matches preference ("+strings.TrimSpace(job.Location)+")"
			if job.Location == "" {
				c.reason = "Remote position"
			}
			return c
		}
	}

	if job.Remote {
		c.score, c.reason = 0.8, "Remote position"
	}
	return c
}

func salaryComponent(job models.Job, criteria models.MatchCriteria) component {
	c := component{weight: WeightSalary}
	top := max(job.SalaryMin, job.SalaryMax)
	bottom := job.SalaryMin
	if bottom == 0 {
		bottom = job.SalaryMax
	}

	if top == 0 {
		c.score, c.reason = 0.5, "Salary not listed"
		return c
	}
	if criteria.SalaryMin == 0 && criteria.SalaryMax == 0 {
		c.score, c.reason = 0.5, "No salary expectation set"
		return c
	}

	salary := models.FormatSalary(job.SalaryMin, job.SalaryMax)
	switch {
	case criteria.SalaryMin > 0 && top < criteria.SalaryMin:
		c.score = 0.5 * float64(top) / float64(criteria.SalaryMin)
		c.reason = "Salary " + salary + " is below expectations"
	case criteria.SalaryMax > 0 && bottom > criteria.SalaryMax:
		c.score, c.reason = 0.8, "Salary "+salary+" is above the expected range"
	default:
		c.score, c.reason = 1, "Salary "+salary+" fits expectations"
	}
	return c
}

func sourceComponent(job models.Job) component {
	c := component{weight: WeightSource}
	switch job.Source {
	case models.JobSourceCompanySite:
		c.score, c.reason = 1, "Listed on the company's own site"
	case models.JobSourceManual:
		c.score, c.reason = 0.8, "Added manually"
	case models.JobSourceGenerated:
		c.score, c.reason = 0.6, "Read from the company's careers page"
	default:
		c.score = 0.5
	}
	return c
}

// containsTerm matches term in text at word boundaries. Terms may contain symbols such as c++ or node.js.
func containsTerm(text, term string) bool {
	for start := 0; start <= len(text)-len(term); {
		i := strings.Index(text[start:], term)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(term)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
