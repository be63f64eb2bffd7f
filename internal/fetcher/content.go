package fetcher

import (
	"fmt"
	"regexp"
	"strings"
)

// challengeMarkers only occur on interstitial challenge and block pages.
// Beacons such as /cdn-cgi/challenge-platform/ are injected into ordinary
// pages and must not be listed here.
var challengeMarkers = []string{
	"cf-chl-",
	`id="challenge-form"`,
	"cf-browser-verification",
	"captcha-delivery.com",
	`id="px-captcha"`,
	"incapsula incident id",
}

// titleMarkers are matched against the document <title> only.
var titleMarkers = []string{
	"just a moment",
	"attention required",
	"access denied",
	"are you a robot",
	"pardon our interruption",
	"too many requests",
	"request unsuccessful",
	"verify you are human",
	"security check",
}

// shortPageMarkers are matched against the text of small documents, where a
// phrase like "access denied" is the whole message rather than page copy.
var shortPageMarkers = []string{
	"please verify you are a human",
	"verify you are human",
	"access denied",
	"request unsuccessful",
	"too many requests",
	"rate limit exceeded",
}

// shortPageBytes bounds the documents shortPageMarkers apply to.
const shortPageBytes = 16 << 10

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func checkContent(url, body string, minBytes int) error {
	if len(body) < minBytes {
		return &ContentError{URL: url, Reason: fmt.Sprintf("body too short (%d bytes)", len(body))}
	}

	lower := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return &ContentError{URL: url, Reason: fmt.Sprintf("challenge page marker %q", marker)}
		}
	}

	if title := pageTitle(lower); title != "" {
		for _, marker := range titleMarkers {
			if strings.Contains(title, marker) {
				return &ContentError{URL: url, Reason: fmt.Sprintf("block page title %q", title)}
			}
		}
	}

	if len(body) <= shortPageBytes {
		for _, marker := range shortPageMarkers {
			if strings.Contains(lower, marker) {
				return &ContentError{URL: url, Reason: fmt.Sprintf("block page marker %q", marker)}
			}
		}
	}
	return nil
}

// pageTitle returns the trimmed <title> text of an already lowercased document.
func pageTitle(lower string) string {
	head := lower
	if i := strings.Index(head, "</head>"); i >= 0 {
		head = head[:i]
	}
	m := titlePattern.FindStringSubmatch(head)
	if m == nil {
		return ""
	}
	return strings.Join(strings.Fields(m[1]), " ")
}
