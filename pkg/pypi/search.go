package pypi

import (
	"context"
	"regexp"
)

// PyPI has no public JSON search API; the search page is scraped for the
// project links inside result snippets.
var (
	snippetRe     = regexp.MustCompile(`<a[^>]*class="[^"]*package-snippet[^"]*"[^>]*>`)
	projectHrefRe = regexp.MustCompile(`href="/project/([^/"]+)/"`)
)

// Search returns up to limit package names matching the free-text query,
// in page order. A limit of zero or less means no limit beyond what the
// page returns.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	body, err := c.searchPage(ctx, query)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, tag := range snippetRe.FindAllString(string(body), -1) {
		m := projectHrefRe.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		names = append(names, m[1])
		if limit > 0 && len(names) >= limit {
			break
		}
	}
	return names, nil
}
