package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishek-J-Sudo/linksentry/models"
	"github.com/Abhishek-J-Sudo/linksentry/services"
)

func TestLinkExtractor_Extract_ClassifiesAndDeduplicates(t *testing.T) {
	html := `<html><head><title>Example Page</title>
		<meta name="description" content="An example page for testing.">
		<link rel="canonical" href="https://example.com/page">
	</head>
	<body>
		<nav><a href="/about">About</a></nav>
		<main>
			<article>
				<a href="/blog/deep-dive-into-testing">Read our deep dive into testing strategies</a>
				<a href="/blog/deep-dive-into-testing">Read our deep dive into testing strategies</a>
				<a href="/files/report.pdf">Download the report</a>
			</article>
		</main>
		<a href="javascript:void(0)">noop</a>
		<a href="mailto:hi@example.com">email us</a>
		<a href="#section">jump</a>
	</body></html>`

	extractor := services.NewLinkExtractor(services.NewURLPolicy(), false, false)
	result, err := extractor.Extract(html, "https://example.com/page", 0)
	require.NoError(t, err)

	assert.Equal(t, 3, len(result.Links), "javascript:, mailto:, and # links must be skipped, duplicates collapsed")

	byURL := map[string]models.LinkInfo{}
	for _, l := range result.Links {
		byURL[l.URL] = l
	}

	about, ok := byURL["https://example.com/about"]
	require.True(t, ok)
	assert.Equal(t, models.LinkTypeNavigation, about.LinkType)

	deepDive, ok := byURL["https://example.com/blog/deep-dive-into-testing"]
	require.True(t, ok)
	assert.Equal(t, models.LinkTypeContent, deepDive.LinkType)

	report, ok := byURL["https://example.com/files/report.pdf"]
	require.True(t, ok)
	assert.Equal(t, models.LinkTypeResource, report.LinkType)

	assert.Equal(t, "Example Page", result.PageInfo.Title)
	assert.Equal(t, "An example page for testing.", result.PageInfo.MetaDescription)
	assert.Equal(t, "https://example.com/page", result.PageInfo.Canonical)
}

func TestLinkExtractor_Extract_ExcludesExternalByDefault(t *testing.T) {
	html := `<body><a href="https://other.example.com/page">External</a></body>`

	extractor := services.NewLinkExtractor(services.NewURLPolicy(), false, false)
	result, err := extractor.Extract(html, "https://example.com/", 0)
	require.NoError(t, err)

	assert.Empty(t, result.Links)
}

func TestLinkExtractor_Extract_IncludesExternalWhenEnabled(t *testing.T) {
	html := `<body><a href="https://other.example.com/page">External content link that is long enough</a></body>`

	extractor := services.NewLinkExtractor(services.NewURLPolicy(), true, false)
	result, err := extractor.Extract(html, "https://example.com/", 0)
	require.NoError(t, err)
	require.Len(t, result.Links, 1)

	assert.False(t, result.Links[0].IsInternal)
}

func TestLinkExtractor_Extract_RespectsNofollow(t *testing.T) {
	html := `<body><a href="/page" rel="nofollow">Some longer link text here</a></body>`

	withoutNofollow := services.NewLinkExtractor(services.NewURLPolicy(), false, false)
	result, err := withoutNofollow.Extract(html, "https://example.com/", 0)
	require.NoError(t, err)
	assert.Empty(t, result.Links)

	withNofollow := services.NewLinkExtractor(services.NewURLPolicy(), false, true)
	result, err = withNofollow.Extract(html, "https://example.com/", 0)
	require.NoError(t, err)
	assert.Len(t, result.Links, 1)
}

func TestLinkExtractor_Extract_SetsDepthRelativeToParent(t *testing.T) {
	html := `<body><a href="/blog/deep-dive-into-testing">A sufficiently long anchor text</a></body>`

	extractor := services.NewLinkExtractor(services.NewURLPolicy(), false, false)
	result, err := extractor.Extract(html, "https://example.com/", 3)
	require.NoError(t, err)
	require.Len(t, result.Links, 1)

	assert.Equal(t, 4, result.Links[0].Depth)
}
