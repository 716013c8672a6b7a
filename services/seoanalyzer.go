package services

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Abhishek-J-Sudo/linksentry/models"
)

const seoMaxBodyBytes = 50 * 1024

// SeoAnalyzer scores an already-fetched HTML page against a fixed set of
// heuristics. It never issues its own HTTP request.
type SeoAnalyzer struct{}

func NewSeoAnalyzer() *SeoAnalyzer { return &SeoAnalyzer{} }

// Analyze scores html (truncated to the first 50KB) for pageURL, given the
// response time the Fetcher observed when retrieving it.
func (a *SeoAnalyzer) Analyze(html, pageURL string, responseTime time.Duration) models.SeoRecord {
	if len(html) > seoMaxBodyBytes {
		html = html[:seoMaxBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.SeoRecord{URL: pageURL, Score: 0, Grade: "F", Error: err.Error()}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	metaDescription, _ := doc.Find(`meta[name="description"]`).Attr("content")
	metaDescription = strings.TrimSpace(metaDescription)
	if metaDescription == "" {
		ogDesc, _ := doc.Find(`meta[property="og:description"]`).Attr("content")
		metaDescription = strings.TrimSpace(ogDesc)
	}

	_, hasCanonical := doc.Find(`link[rel="canonical"]`).Attr("href")

	h1Count := doc.Find("h1").Length()
	h2Count := doc.Find("h2").Length()
	h3Count := doc.Find("h3").Length()

	bodyText := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	wordCount := len(strings.Fields(bodyText))

	imgSel := doc.Find("img")
	imageTotal := imgSel.Length()
	missingAlt := 0
	imgSel.Each(func(_ int, s *goquery.Selection) {
		alt, exists := s.Attr("alt")
		if !exists || strings.TrimSpace(alt) == "" {
			missingAlt++
		}
	})

	isHTTPS := strings.HasPrefix(strings.ToLower(pageURL), "https://")

	score := 100
	var issues []models.Issue

	deduct := func(points int, issueType, message string) {
		score -= points
		issues = append(issues, models.Issue{Type: issueType, Message: message})
	}

	if title == "" {
		deduct(20, models.IssueCritical, "Missing title tag")
	} else {
		if len(title) > 60 {
			deduct(10, models.IssueWarning, "Title is too long (over 60 characters)")
		}
		if len(title) < 30 {
			deduct(5, models.IssueWarning, "Title is too short (under 30 characters)")
		}
	}

	if metaDescription == "" {
		deduct(15, models.IssueMajor, "Missing meta description")
	} else if len(metaDescription) > 160 {
		deduct(8, models.IssueWarning, "Meta description is too long (over 160 characters)")
	}

	if h1Count == 0 {
		deduct(15, models.IssueMajor, "Missing H1 heading")
	} else if h1Count > 1 {
		deduct(10, models.IssueWarning, "Multiple H1 headings found")
	}

	if imageTotal > 0 {
		coverage := float64(imageTotal-missingAlt) / float64(imageTotal)
		if coverage < 0.8 {
			deduct(10, models.IssueWarning, "Poor image alt text coverage (under 80%)")
		}
	}

	if !isHTTPS {
		deduct(10, models.IssueMajor, "Page is not served over HTTPS")
	}

	if wordCount < 200 {
		deduct(10, models.IssueWarning, "Low content word count (under 200 words)")
	}

	if responseTime > 3*time.Second {
		deduct(10, models.IssueWarning, "Slow response time (over 3000ms)")
	}

	if !hasCanonical {
		deduct(5, models.IssueMinor, "Missing canonical URL")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	record := models.SeoRecord{
		URL:    pageURL,
		Score:  score,
		Grade:  grade(score),
		Issues: issues,
	}
	record.Metrics.Title.Text = title
	record.Metrics.Title.Length = len(title)
	record.Metrics.MetaDescription.Text = metaDescription
	record.Metrics.MetaDescription.Length = len(metaDescription)
	record.Metrics.Headings.H1 = h1Count
	record.Metrics.Headings.H2 = h2Count
	record.Metrics.Headings.H3 = h3Count
	record.Metrics.Images.Total = imageTotal
	record.Metrics.Images.MissingAlt = missingAlt
	record.Metrics.Technical.HTTPS = isHTTPS
	record.Metrics.Technical.Canonical = hasCanonical
	record.Metrics.Technical.ResponseTimeMs = responseTime.Milliseconds()
	record.Metrics.Content.WordCount = wordCount

	return record
}

func grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
