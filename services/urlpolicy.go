package services

import (
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/Abhishek-J-Sudo/linksentry/models"
)

// assetExtensions covers images, archives, media, fonts, and bundled
// css/js — anything that is never worth fetching as a page.
var assetExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".bmp", ".tiff",
	".zip", ".tar", ".gz", ".rar", ".7z",
	".mp4", ".mp3", ".avi", ".mov", ".wmv", ".flv", ".webm", ".ogg", ".wav",
	".woff", ".woff2", ".ttf", ".eot", ".otf",
	".css", ".js", ".map",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

var adminPaths = []string{"/admin", "/wp-admin", "/api", "/private"}

var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf"}

var privateHostnames = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

var metadataHosts = map[string]bool{
	"169.254.169.254":        true,
	"metadata.google.internal": true,
	"metadata.azure.com":     true,
}

var dateSegmentRe = regexp.MustCompile(`/(19|20)\d{2}(/\d{1,2})?(/\d{1,2})?(/|$)`)
var bareIntRe = regexp.MustCompile(`/\d+/?$`)

// paramsExcludedFromContent are the query keys that mark a page as a view
// of content rather than content itself (pagination, sorting, filters).
var paramsExcludedFromContent = map[string]bool{
	"page": true, "sort": true, "filter": true, "view": true, "limit": true, "offset": true,
}

// normalizeURL lowercases scheme and host, strips the fragment, drops a
// trailing slash on non-root paths, and sorts query parameters
// lexicographically by key. It is idempotent: normalizeURL(normalizeURL(u))
// == normalizeURL(u).
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}

	if u.RawQuery != "" {
		values := u.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sorted := url.Values{}
		for _, k := range keys {
			sort.Strings(values[k])
			for _, v := range values[k] {
				sorted.Add(k, v)
			}
		}
		u.RawQuery = sorted.Encode()
	}

	return u.String(), nil
}

// isValidURL reports whether raw parses and uses an HTTP(S) scheme.
func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// isInternalURL reports whether candidate shares a hostname with base
// (case-insensitive).
func isInternalURL(candidate, base string) bool {
	cu, err1 := url.Parse(candidate)
	bu, err2 := url.Parse(base)
	if err1 != nil || err2 != nil {
		return false
	}
	return strings.EqualFold(cu.Hostname(), bu.Hostname())
}

// shouldCrawlURL filters out non-HTTP schemes, asset files, and common
// admin paths before a URL is even considered for the frontier.
func shouldCrawlURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	lowerPath := strings.ToLower(u.Path)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return false
		}
	}
	for _, p := range adminPaths {
		if strings.HasPrefix(lowerPath, p) {
			return false
		}
	}
	return true
}

// safetyResult is the outcome of the SSRF gate.
type safetyResult struct {
	Safe   bool
	Reason string
}

// isSafeURL is the SSRF gate. Every URL MUST pass this before any network
// I/O touches it — no exceptions for redirects or retries.
func isSafeURL(raw string) safetyResult {
	u, err := url.Parse(raw)
	if err != nil {
		return safetyResult{false, "invalid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return safetyResult{false, "non-HTTP scheme"}
	}
	if u.User != nil {
		return safetyResult{false, "URL embeds userinfo"}
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return safetyResult{false, "missing host"}
	}
	if privateHostnames[host] {
		return safetyResult{false, "loopback/private hostname"}
	}
	if metadataHosts[host] {
		return safetyResult{false, "cloud metadata host"}
	}
	if strings.HasSuffix(host, ".internal") || strings.HasSuffix(host, ".local") {
		return safetyResult{false, "internal/local TLD"}
	}
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return safetyResult{false, "suspicious TLD"}
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateOrLinkLocal(ip) {
			return safetyResult{false, "private/link-local IP"}
		}
	}

	return safetyResult{true, ""}
}

func isPrivateOrLinkLocal(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	private := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "169.254.0.0/16"}
	for _, cidr := range private {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil && block.Contains(ip) {
			return true
		}
	}
	return false
}

// classifyURL buckets a URL by path/query shape, per URL Policy's
// classifyByUrl contract.
func classifyURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return models.URLClassOther
	}
	lowerPath := strings.ToLower(u.Path)

	for _, p := range []string{"/admin", "/wp-admin", "/wp-content", "/dashboard", "/login", "/auth"} {
		if strings.Contains(lowerPath, p) {
			return models.URLClassAdmin
		}
	}
	if strings.Contains(lowerPath, "/api/") || strings.Contains(lowerPath, "/rest/") ||
		strings.Contains(lowerPath, "/graphql") || strings.Contains(lowerPath, "/webhook") ||
		strings.HasSuffix(lowerPath, ".json") || strings.HasSuffix(lowerPath, ".xml") {
		return models.URLClassAPI
	}
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return models.URLClassMedia
		}
	}
	if dateSegmentRe.MatchString(lowerPath) {
		return models.URLClassDates
	}

	query := u.Query()
	if strings.Contains(lowerPath, "/page/") || query.Get("page") != "" || query.Get("p") != "" ||
		strings.Contains(lowerPath, "/feed") || strings.Contains(lowerPath, "/rss") ||
		bareIntRe.MatchString(lowerPath) {
		return models.URLClassPagination
	}

	if len(query) > 3 {
		return models.URLClassWithParams
	}

	return models.URLClassPages
}

// isContentPageURL reports whether raw is likely primary editorial content,
// per URL Policy's isContentPage contract.
func isContentPageURL(raw string) bool {
	switch classifyURL(raw) {
	case models.URLClassPages:
		return true
	case models.URLClassWithParams:
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		query := u.Query()
		if len(query) > 3 {
			return false
		}
		for key := range query {
			if paramsExcludedFromContent[strings.ToLower(key)] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// URLPolicy bundles the operations above behind a value receiver so the
// rest of the codebase depends on an interface-shaped type rather than
// bare package functions.
type URLPolicy struct{}

func NewURLPolicy() *URLPolicy { return &URLPolicy{} }

func (URLPolicy) Normalize(raw string) (string, error)        { return normalizeURL(raw) }
func (URLPolicy) IsValid(raw string) bool                     { return isValidURL(raw) }
func (URLPolicy) IsInternal(candidate, base string) bool      { return isInternalURL(candidate, base) }
func (URLPolicy) ShouldCrawl(raw string) bool                 { return shouldCrawlURL(raw) }
func (URLPolicy) IsSafe(raw string) (bool, string) {
	r := isSafeURL(raw)
	return r.Safe, r.Reason
}
func (URLPolicy) ClassifyByURL(raw string) string    { return classifyURL(raw) }
func (URLPolicy) IsContentPage(raw string) bool      { return isContentPageURL(raw) }
