// Package discovery scans a venue's listing page for links to per-day reports.
package discovery

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hall-data-lab/internal/domain"
)

// Defaults for Options.
const (
	DefaultHeadingSelector   = "h1, h2, h3, h4, h5, h6, .title, .name"
	DefaultContainerSelector = "li, article, section, tr, div"
)

// DefaultLinkPattern matches report URLs ending in a numeric identifier of at least
// three digits, e.g. /report/12345 or /data/98765/.
var DefaultLinkPattern = regexp.MustCompile(`/\d{3,}/?$`)

// Options configures a Discoverer.
type Options struct {
	Strategy domain.DiscoveryStrategy

	// VenueSubstring must appear in the link's heading (or text) for the name strategy.
	VenueSubstring string

	// HeadingSelector locates the heading inside a link's container.
	HeadingSelector string

	// ContainerSelector is matched by the closest ancestor that groups a heading with its link.
	ContainerSelector string

	// LinkPattern is matched against the resolved URL path for the pattern strategy.
	LinkPattern *regexp.Regexp
}

// Discoverer extracts report candidates from listing HTML.
type Discoverer struct {
	opts Options
}

// NewDiscoverer creates a Discoverer, filling unset options with defaults.
func NewDiscoverer(opts Options) (*Discoverer, error) {
	if !opts.Strategy.IsValid() {
		return nil, fmt.Errorf("invalid discovery strategy %q", opts.Strategy)
	}
	if opts.Strategy == domain.StrategyNameScoped && strings.TrimSpace(opts.VenueSubstring) == "" {
		return nil, fmt.Errorf("name strategy requires a venue substring")
	}
	if opts.HeadingSelector == "" {
		opts.HeadingSelector = DefaultHeadingSelector
	}
	if opts.ContainerSelector == "" {
		opts.ContainerSelector = DefaultContainerSelector
	}
	if opts.LinkPattern == nil {
		opts.LinkPattern = DefaultLinkPattern
	}
	return &Discoverer{opts: opts}, nil
}

// Discover returns candidate report links found in html, in document order.
//
// Hrefs are resolved against sourceURL and stripped of fragments. Output is unique
// by URL: the first occurrence wins, except that an empty title is replaced by a
// later non-empty one for the same URL.
func (d *Discoverer) Discover(html string, sourceURL string) ([]domain.ReportCandidate, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var candidates []domain.ReportCandidate
	index := make(map[string]int)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link, ok := resolve(base, href)
		if !ok {
			return
		}

		text := collapse(a.Text())
		if text == "" {
			text = collapse(a.AttrOr("title", ""))
		}

		var title string
		switch d.opts.Strategy {
		case domain.StrategyNameScoped:
			heading := d.headingFor(a)
			if !strings.Contains(heading, d.opts.VenueSubstring) && !strings.Contains(text, d.opts.VenueSubstring) {
				return
			}
			title = text
		case domain.StrategyPatternScoped:
			if !d.opts.LinkPattern.MatchString(link.Path) {
				return
			}
			title = text
		}

		key := link.String()
		if i, seen := index[key]; seen {
			if candidates[i].RawTitleText == "" && title != "" {
				candidates[i].RawTitleText = title
			}
			return
		}
		index[key] = len(candidates)
		candidates = append(candidates, domain.ReportCandidate{URL: key, RawTitleText: title})
	})

	return candidates, nil
}

// headingFor returns the heading text of the closest container around a,
// or "" when the container has no heading.
func (d *Discoverer) headingFor(a *goquery.Selection) string {
	container := a.Closest(d.opts.ContainerSelector)
	if container.Length() == 0 {
		return ""
	}
	return collapse(container.Find(d.opts.HeadingSelector).First().Text())
}

// resolve turns href into an absolute http(s) URL without fragment.
func resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs, true
}

// collapse trims text and folds internal whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
