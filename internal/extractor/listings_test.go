package extractor

import (
	"testing"

	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const careersPage = `<html><body>
<nav class="nav"><a href="/">Home</a></nav>
<div class="position-relative"><h1>Join Acme</h1></div>
<ul class="jobs-list">
  <li class="job-item">
    <h3 class="job-title">Junior Backend Engineer</h3>
    <span class="job-location">Berlin</span>
    <a href="/careers/junior-backend">Details</a>
    <p>Work on Go services.</p>
  </li>
  <li class="job-item">
    <h3 class="job-title">Senior Product Manager</h3>
    <span class="job-location">Remote</span>
    <a href="https://acme.io/careers/spm">Details</a>
  </li>
  <li class="job-item"><h3>Dev</h3></li>
</ul>
<script>var jobs = ["hidden"];</script>
</body></html>`

func Test_ExtractListings_WhenListPresent_ShouldExtractEachPosting(t *testing.T) {
	listings := ExtractListings(careersPage, "Acme", "https://acme.io/careers")

	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Junior Backend Engineer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, "Berlin", first.Location)
	assert.Equal(t, "https://acme.io/careers/junior-backend", first.SourceURL)
	assert.Contains(t, first.Description, "Work on Go services.")
	assert.True(t, first.IsEntryLevel)
	assert.Equal(t, models.SourceStructural, first.Source)

	second := listings[1]
	assert.Equal(t, "Senior Product Manager", second.Title)
	assert.Equal(t, "Remote", second.Location)
	assert.False(t, second.IsEntryLevel)
}

func Test_ExtractListings_WhenSinglePostingWrapped_ShouldTakeItOnce(t *testing.T) {
	page := `<div id="open-positions"><div class="position"><h2>Data Analyst Intern</h2>
		<p>Six month internship.</p></div></div>`

	listings := ExtractListings(page, "Acme", "https://acme.io/jobs")

	require.Len(t, listings, 1)
	assert.Equal(t, "Data Analyst Intern", listings[0].Title)
	assert.Equal(t, "https://acme.io/jobs", listings[0].SourceURL)
}

func Test_ExtractListings_WhenOnlyJobLinks_ShouldUseAnchors(t *testing.T) {
	page := `<main><p>We are hiring!</p>
		<a href="/jobs/frontend-developer">Frontend Developer</a>
		<a href="/about">About us</a></main>`

	listings := ExtractListings(page, "Acme", "https://acme.io/careers")

	require.Len(t, listings, 1)
	assert.Equal(t, "Frontend Developer", listings[0].Title)
	assert.Equal(t, "https://acme.io/jobs/frontend-developer", listings[0].SourceURL)
}

func Test_ExtractListings_WhenNoStructure_ShouldReturnEmptyList(t *testing.T) {
	listings := ExtractListings(`<p>We are always looking for talent. Write to us!</p>`, "Acme", "https://acme.io")

	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func Test_PageText_ShouldSkipScriptsAndKeepMailtoAddresses(t *testing.T) {
	text := PageText(`<p>Hello <b>world</b></p><script>var x = 1</script>
		<a href="mailto:jobs@acme.io?subject=Hi">Write us</a>`)

	assert.Contains(t, text, "Hello world")
	assert.Contains(t, text, "jobs@acme.io")
	assert.NotContains(t, text, "var x")
}

func Test_ExtractListings_WhenPostingsHaveNoLinks_ShouldKeyThemByTitle(t *testing.T) {
	page := `<ul class="openings">
		<li class="job"><h3>Junior Go Developer</h3><p>Go services.</p></li>
		<li class="job"><h3>Graduate SQL Engineer</h3><p>Reporting.</p></li>
	</ul>`

	listings := ExtractListings(page, "Acme", "https://acme.io/careers")

	require.Len(t, listings, 2)
	for _, listing := range listings {
		assert.Equal(t, "https://acme.io/careers", listing.SourceURL)
		assert.False(t, listing.HasOwnURL())
	}
	first, second := models.JobFromCandidate(listings[0]), models.JobFromCandidate(listings[1])
	assert.NotEqual(t, first.Key, second.Key)
	assert.Equal(t, models.JobKey("", "Acme", "Junior Go Developer"), first.Key)
}

func Test_ExtractListings_WhenPostingLinksOut_ShouldKeyByItsURL(t *testing.T) {
	listings := ExtractListings(careersPage, "Acme", "https://acme.io/careers")

	require.NotEmpty(t, listings)
	assert.True(t, listings[0].HasOwnURL())
	assert.Equal(t, models.JobKey("https://acme.io/careers/junior-backend", "", ""),
		models.JobFromCandidate(listings[0]).Key)
}
