package posti

import (
	"fmt"
	"regexp"
)

// The login flow is not an API: the session identifier arrives as a query
// fragment on the final redirect URL, and code/state arrive as hidden form
// fields inside an HTML document. These extractors isolate that scraping so
// the fragile part stays small and testable.

var sessionIDRe = regexp.MustCompile(`_id=(.+?)(?:$|&)`)

func extractSessionID(finalURL string) (string, error) {
	m := sessionIDRe.FindStringSubmatch(finalURL)
	if m == nil {
		return "", fmt.Errorf("no _id parameter in %q", finalURL)
	}
	return m[1], nil
}

func extractHiddenField(html, name string) (string, error) {
	re, err := regexp.Compile(`<input type="hidden" name="` + regexp.QuoteMeta(name) + `" value="(.*)" />`)
	if err != nil {
		return "", err
	}
	m := re.FindStringSubmatch(html)
	if m == nil {
		return "", fmt.Errorf("no hidden field %q in response", name)
	}
	return m[1], nil
}
