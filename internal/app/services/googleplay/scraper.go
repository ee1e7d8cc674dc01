// Package googleplay implements the Google Play adapter by scraping the
// storefront HTML. Google Play exposes no public metadata API, so every
// field is recovered through the ordered fallback strategies in the extract
// package; the page markup is expected to drift over time.
package googleplay

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/technophere/applinks/internal/app/domain/appmeta"
	"github.com/technophere/applinks/internal/app/extract"
	"github.com/technophere/applinks/internal/httputil"
	"github.com/technophere/applinks/pkg/logger"
)

const (
	defaultBaseURL = "https://play.google.com"
	detailsPath    = "/store/apps/details"
	searchPath     = "/store/search"

	// maxSearchResults bounds interactive search; the editor UI shows a
	// short pick list, not a full results page.
	maxSearchResults = 5
)

var (
	ratingLabelRe   = regexp.MustCompile(`Rated ([0-9]+(?:\.[0-9]+)?)`)
	numericPrefixRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// Field specs for the details page, most stable signal first: microdata,
// then accessible labels, then class-based markers observed in the wild.
var (
	nameSpec = extract.FieldSpec{
		extract.Text(`h1[itemprop="name"]`),
		extract.Text("h1"),
	}
	developerSpec = extract.FieldSpec{
		// Matches both /store/apps/dev?id= and /store/apps/developer?id=.
		extract.FirstText(`a[href*="/store/apps/dev"]`),
	}
	iconSpec = extract.FieldSpec{
		// The accessible label distinguishes the icon from the much larger
		// feature graphic at the top of the page.
		extract.Attr(`img[alt="Icon image"]`, "src"),
	}
	ratingSpec = extract.FieldSpec{
		extract.Text(`div[itemprop="starRating"] div[itemprop="ratingValue"]`),
		extract.AttrSubmatch(`div[aria-label*="stars out of five"]`, "aria-label", ratingLabelRe),
		extract.Text("div.TT9eCd"),
	}
	reviewCountSpec = extract.FieldSpec{
		// Known class marker; degrades to empty when the page format drifts.
		extract.Text("div.g1rdde"),
	}
)

// Search-card specs. The legacy layout nests name and icon inside the anchor
// itself; the current layout leaves the anchor empty and puts content in the
// surrounding block.
var (
	cardNameSpec = extract.FieldSpec{
		extract.FirstText("span"),
		extract.LeafText(0),
	}
	cardIconSpec = extract.FieldSpec{
		extract.ImageSource("img"),
	}
)

// Scraper implements search and detail lookup against the Play storefront.
type Scraper struct {
	client  *httputil.Client
	baseURL string
	lang    string
	region  string
	log     *logger.Logger
}

// NewScraper constructs the adapter. An empty baseURL targets the public
// storefront; lang and region default to ja / JP.
func NewScraper(client *httputil.Client, baseURL, lang, region string, log *logger.Logger) (*Scraper, error) {
	if client == nil {
		return nil, fmt.Errorf("http client required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse storefront base URL: %w", err)
	}
	if lang = strings.TrimSpace(lang); lang == "" {
		lang = "ja"
	}
	if region = strings.TrimSpace(region); region == "" {
		region = "JP"
	}
	if log == nil {
		log = logger.NewDefault("googleplay-scraper")
	}
	return &Scraper{client: client, baseURL: baseURL, lang: lang, region: region, log: log}, nil
}

// StoreURL returns the canonical deep link for an app's storefront page.
func (s *Scraper) StoreURL(id string) string {
	return defaultBaseURL + detailsPath + "?id=" + url.QueryEscape(id) + "&hl=" + s.lang
}

// Search fetches the storefront search page and extracts up to five unique
// app cards. It returns an empty slice on any failure: by contract callers
// cannot distinguish "no results" from "fetch failed".
func (s *Scraper) Search(ctx context.Context, term string) []appmeta.SearchResult {
	searchURL := fmt.Sprintf("%s%s?q=%s&c=apps&hl=%s&gl=%s",
		s.baseURL, searchPath, url.QueryEscape(term), s.lang, s.region)

	doc, err := s.fetchDocument(ctx, searchURL)
	if err != nil {
		s.log.WithError(err).WithField("term", term).Warn("storefront search failed")
		return []appmeta.SearchResult{}
	}
	return s.parseSearch(doc)
}

func (s *Scraper) parseSearch(doc *goquery.Document) []appmeta.SearchResult {
	results := make([]appmeta.SearchResult, 0, maxSearchResults)
	seen := make(map[string]bool)

	doc.Find(`a[href*="` + detailsPath + `?id="]`).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, _ := anchor.Attr("href")
		id := appIDFromHref(href)
		if id == "" || seen[id] {
			return true
		}

		// Legacy layout: content lives inside the anchor.
		name := extract.First(anchor, cardNameSpec)
		icon := extract.First(anchor, cardIconSpec)
		developer := ""

		// Current layout: the anchor is empty and the card content sits in
		// the parent block — name first, developer as the following text.
		if name == "" {
			parent := anchor.Parent()
			name = extract.First(parent, extract.FieldSpec{extract.LeafText(0)})
			developer = extract.First(parent, extract.FieldSpec{extract.LeafText(1)})
			if icon == "" {
				icon = extract.First(parent, cardIconSpec)
			}
		}

		if name == "" {
			return true
		}

		seen[id] = true
		results = append(results, appmeta.SearchResult{
			ID:        id,
			Store:     appmeta.StoreGooglePlay,
			Name:      name,
			IconURL:   icon,
			Developer: developer,
		})
		return len(results) < maxSearchResults
	})

	return results
}

// FetchDetails scrapes the details page for one app. A record is returned
// only when the name could be extracted; the name is what defines "the app
// exists and was scraped successfully". Any other field may come back empty
// without failing the whole record.
func (s *Scraper) FetchDetails(ctx context.Context, id string) (appmeta.Record, error) {
	detailsURL := fmt.Sprintf("%s%s?id=%s&hl=%s&gl=%s",
		s.baseURL, detailsPath, url.QueryEscape(id), s.lang, s.region)

	doc, err := s.fetchDocument(ctx, detailsURL)
	if err != nil {
		return appmeta.Record{}, fmt.Errorf("fetch details page: %w", err)
	}

	sel := doc.Selection
	name := extract.First(sel, nameSpec)
	if name == "" {
		return appmeta.Record{}, fmt.Errorf("app %s: name not found in page", id)
	}

	return appmeta.Record{
		Store:       appmeta.StoreGooglePlay,
		ID:          id,
		Name:        name,
		Developer:   extract.First(sel, developerSpec),
		IconURL:     extract.First(sel, iconSpec),
		Rating:      parseRating(extract.First(sel, ratingSpec)),
		ReviewCount: extract.First(sel, reviewCountSpec),
		StoreURL:    s.StoreURL(id),
	}, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := s.client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storefront status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse storefront page: %w", err)
	}
	if doc.Find("body").Children().Length() == 0 {
		return nil, fmt.Errorf("empty storefront page")
	}
	return doc, nil
}

func appIDFromHref(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}

// parseRating extracts a leading numeric value the way the storefront writes
// it ("4.5", "4.5 stars"). Unparsable input means "no rating available".
func parseRating(raw string) float64 {
	m := numericPrefixRe.FindString(raw)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 || v > 5 {
		return 0
	}
	return v
}
