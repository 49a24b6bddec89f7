// Package htmlutil extracts contact details and links from company web pages.
package htmlutil

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	scriptPattern     = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	multiSpacePattern = regexp.MustCompile(`\s+`)

	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	mailtoPattern = regexp.MustCompile(`(?i)href=["']mailto:([^"'?]+)`)
	telPattern    = regexp.MustCompile(`(?i)href=["']tel:([^"']+)["']`)
	anchorPattern = regexp.MustCompile(`(?is)<a[^>]+href=["']?([^\s"'>]+)["']?[^>]*>(.*?)</a>`)

	// phonePattern covers Australian numbers in national and +61 form,
	// 1300/1800 numbers and North American numbers with separators.
	phonePattern = regexp.MustCompile(
		`(?:\+61[\s-]?(?:\(0\)\s?)?|\(0|0)[2-478]\)?(?:[\s-]?\d){8}` + // +61 2 9999 0000, (02) 9999 0000, 0412 345 678
			`|1[38]00(?:[\s-]?\d){6}` + // 1300 123 456
			`|(?:\+?1[-.\s]?)?\([0-9]{3}\)[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}` + // (555) 123-4567
			`|(?:\+?1[-.\s]?)?[0-9]{3}[-.\s][0-9]{3}[-.\s][0-9]{4}`, // 555-123-4567
	)
)

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

// StripTags removes scripts, styles and tags and returns collapsed plain text.
func StripTags(content string) string {
	if content == "" {
		return ""
	}
	content = scriptPattern.ReplaceAllString(content, " ")
	content = tagPattern.ReplaceAllString(content, " ")
	content = html.UnescapeString(content)
	content = multiSpacePattern.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// EmailAddresses returns lowercase addresses from mailto links and page text,
// mailto links first. Placeholder and asset-like matches are dropped.
func EmailAddresses(content string) []string {
	var emails []string
	seen := make(map[string]bool)
	add := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] || isFalsePositiveEmail(e) {
			return
		}
		seen[e] = true
		emails = append(emails, e)
	}

	for _, m := range mailtoPattern.FindAllStringSubmatch(content, -1) {
		if v, err := url.PathUnescape(m[1]); err == nil {
			add(v)
		}
	}
	for _, e := range emailPattern.FindAllString(StripTags(content), -1) {
		add(e)
	}
	return emails
}

func isFalsePositiveEmail(e string) bool {
	if !emailPattern.MatchString(e) {
		return true
	}
	for _, p := range []string{"noreply@", "no-reply@", "donotreply@", "example@", "email@", "name@", "you@"} {
		if strings.HasPrefix(e, p) {
			return true
		}
	}
	for _, s := range []string{"@example.", "@localhost", "@test.", "@sentry", "@wixpress.com"} {
		if strings.Contains(e, s) {
			return true
		}
	}
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"} {
		if strings.HasSuffix(e, ext) {
			return true
		}
	}
	return false
}

// PhoneNumbers returns phone numbers from tel: links and page text in their
// original formatting, tel: links first, deduplicated by digits.
func PhoneNumbers(content string) []string {
	var phones []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = strings.TrimSpace(p)
		d := digits(p)
		if len(d) < minPhoneDigits || len(d) > maxPhoneDigits || seen[phoneKey(d)] {
			return
		}
		seen[phoneKey(d)] = true
		phones = append(phones, p)
	}

	for _, m := range telPattern.FindAllStringSubmatch(content, -1) {
		if v, err := url.PathUnescape(m[1]); err == nil {
			add(v)
		}
	}

	text := StripTags(content)
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		// Reject matches that are a slice of a longer digit run.
		if start > 0 && isDigit(text[start-1]) || end < len(text) && isDigit(text[end]) {
			continue
		}
		add(text[start:end])
	}
	return phones
}

// ContactLinks returns same-host links to contact, about or team pages,
// resolved against baseURL.
func ContactLinks(content, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := map[string]bool{normalizeForDedup(baseURL): true}
	for _, m := range anchorPattern.FindAllStringSubmatch(content, -1) {
		href := strings.TrimSpace(m[1])
		text := strings.ToLower(StripTags(m[2]))
		if !isContactLink(strings.ToLower(href), text) {
			continue
		}
		resolved := resolveURL(base, href)
		if resolved == "" || !sameHost(resolved, base) {
			continue
		}
		key := normalizeForDedup(resolved)
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, resolved)
	}
	return links
}

var contactKeywords = []string{"contact", "about", "team", "people", "leadership", "get in touch", "our story"}

func isContactLink(href, text string) bool {
	for _, kw := range contactKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, p := range []string{"/contact", "/about", "/team", "/people", "/leadership"} {
		if strings.Contains(href, p) {
			return true
		}
	}
	return false
}

// IsBotProtection reports whether content looks like a challenge page
// served instead of the real site.
func IsBotProtection(content string) bool {
	lower := strings.ToLower(content)
	if len(content) < 500 && strings.Contains(lower, "javascript") && strings.Contains(lower, "enable") {
		return true
	}
	for _, marker := range []string{
		"checking your browser", "cf-browser-verification", "cf_chl_opt",
		"please verify you are a human", "verify you are human", "captcha-delivery.com",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.Contains(lower, "access denied") && strings.Contains(lower, "bot")
}

func resolveURL(base *url.URL, href string) string {
	lower := strings.ToLower(href)
	for _, p := range []string{"javascript:", "mailto:", "tel:", "#"} {
		if strings.HasPrefix(lower, p) {
			return ""
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	return u.String()
}

func sameHost(raw string, base *url.URL) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.") == strings.TrimPrefix(strings.ToLower(base.Host), "www.")
}

func normalizeForDedup(u string) string {
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.ToLower(u)
}

func digits(s string) string {
	var b strings.Builder
	for i := range len(s) {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// phoneKey folds +61 numbers onto their national form.
func phoneKey(d string) string {
	if len(d) == 11 && strings.HasPrefix(d, "61") {
		return "0" + d[2:]
	}
	return d
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
