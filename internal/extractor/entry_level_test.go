package extractor

import (
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_IsEntryLevel(t *testing.T) {
	cases := []struct {
		title       string
		description string
		expected    bool
	}{
		{"Junior Project Manager", "Coordinate delivery", true},
		{"Senior Project Manager", "Own delivery across teams", false},
		{"Product Manager", "Discovery and roadmap", true},
		{"Lead Product Manager", "", false},
		{"Head of Product", "Product management leadership", false},
		{"Graduate Software Engineer", "", true},
		{"Software Engineer", "We expect 0-2 years of experience", true},
		{"Summer Internship - Data", "", true},
		{"Backend Engineer", "Build APIs in Go", false},
		{"Internal Tools Engineer", "", false},
		{"Associate Consultant", "", true},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, IsEntryLevel(c.title, c.description), c.title)
	}
}

func Test_IsEntryLevel_ShouldBeDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.True(t, IsEntryLevel("Junior Project Manager", "..."))
		assert.False(t, IsEntryLevel("Senior Project Manager", "..."))
	}
}

func Test_ClassifyEntryLevel_WhenKeywordListsShuffled_ShouldNotChangeResult(t *testing.T) {
	samples := []string{
		"Junior Project Manager", "Senior Project Manager", "Product Owner",
		"Principal Engineer", "Trainee Analyst", "Director of Program Management",
		"Scrum Master (Lead)", "Apprenticeship in IT", "Marketing Specialist",
	}
	rng := rand.New(rand.NewSource(42))
	shuffled := func(in []*regexp.Regexp) []*regexp.Regexp {
		out := append([]*regexp.Regexp(nil), in...)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	for round := 0; round < 20; round++ {
		entry := shuffled(entryLevelPatterns)
		management := shuffled(managementPatterns)
		senior := shuffled(seniorPatterns)
		for _, s := range samples {
			expected := classifyEntryLevel(s, entryLevelPatterns, managementPatterns, seniorPatterns)
			assert.Equal(t, expected, classifyEntryLevel(s, entry, management, senior), s)
		}
	}
}
