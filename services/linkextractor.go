package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Abhishek-J-Sudo/linksentry/models"
)

const maxLinksPerPage = 1000
const maxLinkTextLen = 100
const maxMetaDescriptionLen = 200

var navClassRe = regexp.MustCompile(`(?i)nav|menu|navigation|navbar|breadcrumb|sidebar`)
var contentClassRe = regexp.MustCompile(`(?i)post-link|article-link|content-link|entry-link`)
var contentPathRe = regexp.MustCompile(`(?i)/blog/|/article/|/post/|/news/|/guide/|/tutorial/|/review/`)

var commonNavText = map[string]bool{
	"home": true, "about": true, "contact": true, "login": true, "sign in": true,
	"sign up": true, "register": true, "services": true, "blog": true, "faq": true,
	"privacy": true, "terms": true, "careers": true, "support": true, "pricing": true,
}

var contentHintPhrases = []string{"read more", "continue reading", "learn more", "full story", "keep reading"}

// LinkExtractor parses a fetched HTML page and emits normalized outbound
// links plus page metadata, per the Link Extractor contract.
type LinkExtractor struct {
	policy            *URLPolicy
	includeExternal   bool
	followNofollow    bool
}

func NewLinkExtractor(policy *URLPolicy, includeExternal, followNofollow bool) *LinkExtractor {
	return &LinkExtractor{policy: policy, includeExternal: includeExternal, followNofollow: followNofollow}
}

// Extract walks html's anchors and structural tags, returning the emitted
// links (capped at maxLinksPerPage, preferring higher-priority content and
// navigation links) and the page's metadata bundle.
func (e *LinkExtractor) Extract(html, baseURL string, currentDepth int) (models.ExtractionResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ExtractionResult{}, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return models.ExtractionResult{}, err
	}

	seen := make(map[string]bool)
	var links []models.LinkInfo

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "#") {
			return
		}

		rel, _ := sel.Attr("rel")
		if !e.followNofollow && strings.Contains(strings.ToLower(rel), "nofollow") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		normalized, err := e.policy.Normalize(resolved.String())
		if err != nil {
			return
		}

		if safe, _ := e.policy.IsSafe(normalized); !safe {
			return
		}

		isInternal := e.policy.IsInternal(normalized, baseURL)
		if !isInternal && !e.includeExternal {
			return
		}

		if seen[normalized] {
			return
		}
		seen[normalized] = true

		linkText := cleanLinkText(sel.Text())
		linkType, context := classifyLink(sel, normalized, linkText)
		priority := computePriority(sel, normalized, linkText, linkType, e.policy)

		target, _ := sel.Attr("target")
		title, _ := sel.Attr("title")
		class, _ := sel.Attr("class")
		id, _ := sel.Attr("id")

		links = append(links, models.LinkInfo{
			URL:         normalized,
			SourceURL:   baseURL,
			LinkText:    linkText,
			IsInternal:  isInternal,
			Depth:       currentDepth + 1,
			ShouldCrawl: shouldCrawlURL(normalized),
			LinkType:    linkType,
			Priority:    priority,
			Context:     context,
			Attributes: models.LinkAttributes{
				Rel: rel, Target: target, Title: title, Class: class, ID: id,
			},
		})
	})

	pageInfo := extractPageInfo(doc, base, len(links))

	result := models.ExtractionResult{PageInfo: pageInfo}
	result.Stats.TotalFound = len(links)

	capped := links
	truncated := false
	if len(links) > maxLinksPerPage {
		capped = capLinksByPriority(links, maxLinksPerPage)
		truncated = true
	}
	result.Links = capped
	result.Stats.Emitted = len(capped)
	result.Stats.Capped = truncated

	return result, nil
}

func capLinksByPriority(links []models.LinkInfo, limit int) []models.LinkInfo {
	preferred := make([]models.LinkInfo, 0, limit)
	rest := make([]models.LinkInfo, 0, len(links))
	for _, l := range links {
		if l.LinkType == models.LinkTypeContent || l.LinkType == models.LinkTypeNavigation {
			preferred = append(preferred, l)
		} else {
			rest = append(rest, l)
		}
	}
	sortByPriorityDesc(preferred)
	sortByPriorityDesc(rest)

	combined := append(preferred, rest...)
	if len(combined) > limit {
		combined = combined[:limit]
	}
	return combined
}

func sortByPriorityDesc(links []models.LinkInfo) {
	for i := 1; i < len(links); i++ {
		j := i
		for j > 0 && links[j-1].Priority < links[j].Priority {
			links[j-1], links[j] = links[j], links[j-1]
			j--
		}
	}
}

func cleanLinkText(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	if len(text) > maxLinkTextLen {
		text = text[:maxLinkTextLen]
	}
	return text
}

// classifyLink determines the linkType per the Link Extractor's
// navigation/resource/content/other rules.
func classifyLink(sel *goquery.Selection, normalizedURL, linkText string) (string, string) {
	lowerText := strings.ToLower(linkText)

	if hasAncestorTag(sel, "nav", "header", "footer", "aside") || selectorClassMatches(sel, navClassRe) ||
		commonNavText[lowerText] || len(linkText) < 4 {
		return models.LinkTypeNavigation, "navigation-area"
	}

	if isAssetURL(normalizedURL) ||
		strings.Contains(lowerText, "download") || strings.Contains(lowerText, "pdf") ||
		strings.Contains(lowerText, "file") || strings.Contains(lowerText, "document") {
		return models.LinkTypeResource, ""
	}

	if contentPathRe.MatchString(normalizedURL) || selectorClassMatches(sel, contentClassRe) ||
		(hasAncestorTag(sel, "main", "article") || hasAncestorClass(sel, "content", "post-content")) && len(linkText) > 10 {
		return models.LinkTypeContent, "content-area"
	}

	return models.LinkTypeOther, ""
}

func isAssetURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func hasAncestorTag(sel *goquery.Selection, tags ...string) bool {
	for _, tag := range tags {
		if sel.ParentsFiltered(tag).Length() > 0 {
			return true
		}
	}
	return false
}

func hasAncestorClass(sel *goquery.Selection, classes ...string) bool {
	for _, c := range classes {
		if sel.ParentsFiltered("."+c).Length() > 0 {
			return true
		}
	}
	return false
}

func selectorClassMatches(sel *goquery.Selection, re *regexp.Regexp) bool {
	if class, ok := sel.Attr("class"); ok && re.MatchString(class) {
		return true
	}
	if parent := sel.Parent(); parent.Length() > 0 {
		if class, ok := parent.Attr("class"); ok && re.MatchString(class) {
			return true
		}
	}
	return false
}

// computePriority scores a link 1..10 for the Orchestrator's advisory use;
// it never affects correctness of checking.
func computePriority(sel *goquery.Selection, normalizedURL, linkText, linkType string, policy *URLPolicy) int {
	priority := 5
	lowerText := strings.ToLower(linkText)

	if hasAncestorTag(sel, "main", "article") || hasAncestorClass(sel, "content", "post-content") {
		priority += 2
	}
	if textLen := len(linkText); textLen > 10 && textLen < 100 {
		priority++
	}
	for _, phrase := range contentHintPhrases {
		if strings.Contains(lowerText, phrase) {
			priority += 2
			break
		}
	}
	if commonNavText[lowerText] {
		priority -= 2
	}
	if linkType == models.LinkTypeNavigation {
		priority--
	}
	if policy.ClassifyByURL(normalizedURL) == models.URLClassPages {
		priority += 2
	}

	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}
	return priority
}

// extractPageInfo pulls the once-per-page metadata bundle: title, meta
// description, canonical, lang, robots meta, and the lightweight analysis.
func extractPageInfo(doc *goquery.Document, base *url.URL, linkCount int) models.PageInfo {
	info := models.PageInfo{}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		info.Title = truncate(title, 100)
	} else if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		info.Title = truncate(h1, 100)
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(desc) != "" {
		info.MetaDescription = truncate(strings.TrimSpace(desc), maxMetaDescriptionLen)
	} else if ogDesc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		info.MetaDescription = truncate(strings.TrimSpace(ogDesc), maxMetaDescriptionLen)
	}

	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && canonical != "" {
		if resolved, err := base.Parse(canonical); err == nil {
			info.Canonical = resolved.String()
		}
	}

	if lang, ok := doc.Find("html").Attr("lang"); ok {
		info.HTMLLang = lang
	}
	if robotsMeta, ok := doc.Find(`meta[name="robots"]`).Attr("content"); ok {
		info.RobotsMeta = robotsMeta
	}

	bodyText := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	info.Analysis = models.PageAnalysis{
		WordCount:       len(strings.Fields(bodyText)),
		ParagraphCount:  doc.Find("p").Length(),
		HeadingCount:    doc.Find("h1,h2,h3,h4,h5,h6").Length(),
		LinkCount:       linkCount,
		ImageCount:      doc.Find("img").Length(),
		HasNav:          doc.Find("nav").Length() > 0,
		HasMainContent:  doc.Find("main,article,.content,.post-content").Length() > 0,
		HasSchemaMarkup: doc.Find(`script[type="application/ld+json"]`).Length() > 0,
	}

	return info
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
