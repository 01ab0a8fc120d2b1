package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NormalizeURL(t *testing.T) {
	cases := map[string]string{
		"acme.io":                      "https://acme.io",
		"  www.Acme.io/  ":             "https://www.acme.io",
		"HTTP://Acme.IO/careers/#top":  "http://acme.io/careers",
		"https://acme.io/jobs?team=go": "https://acme.io/jobs?team=go",
	}
	for input, expected := range cases {
		got, err := NormalizeURL(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	for _, invalid := range []string{"", "ftp://acme.io", "https://"} {
		_, err := NormalizeURL(invalid)
		assert.Error(t, err, invalid)
	}
}

func Test_CompanyNameFromURL(t *testing.T) {
	assert.Equal(t, "Acme", CompanyNameFromURL("https://www.acme.io"))
	assert.Equal(t, "Globex", CompanyNameFromURL("https://globex.com/about"))
}

func Test_Join_WhenBaseHasQuery_ShouldProbeThePath(t *testing.T) {
	normalized, err := NormalizeURL("acme.io/?utm_source=newsletter")
	require.NoError(t, err)

	assert.Equal(t, "https://acme.io/careers", join(normalized, "/careers"))
	assert.Equal(t, "https://acme.io/en/about-us", join("https://acme.io/en?lang=en", "/about-us"))
	assert.Equal(t, "https://acme.io/jobs", join("https://acme.io/", "/jobs"))
}
