// Package appstore implements the App Store lookup adapter over the iTunes
// lookup JSON API.
package appstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/technophere/applinks/internal/app/domain/appmeta"
	"github.com/technophere/applinks/internal/httputil"
	"github.com/technophere/applinks/pkg/logger"
)

const defaultEndpoint = "https://itunes.apple.com/lookup"

// Lookup resolves App Store metadata through the structured lookup endpoint.
type Lookup struct {
	client   *httputil.Client
	endpoint string
	country  string
	log      *logger.Logger
}

// NewLookup constructs the adapter. An empty endpoint falls back to the
// public iTunes lookup URL; country defaults to JP.
func NewLookup(client *httputil.Client, endpoint, country string, log *logger.Logger) (*Lookup, error) {
	if client == nil {
		return nil, fmt.Errorf("http client required")
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse lookup endpoint: %w", err)
	}
	country = strings.TrimSpace(country)
	if country == "" {
		country = "JP"
	}
	if log == nil {
		log = logger.NewDefault("appstore-lookup")
	}
	return &Lookup{client: client, endpoint: endpoint, country: country, log: log}, nil
}

type lookupResult struct {
	TrackName         string  `json:"trackName"`
	ArtistName        string  `json:"artistName"`
	ArtworkURL512     string  `json:"artworkUrl512"`
	ArtworkURL100     string  `json:"artworkUrl100"`
	FormattedPrice    string  `json:"formattedPrice"`
	TrackViewURL      string  `json:"trackViewUrl"`
	AverageUserRating float64 `json:"averageUserRating"`
	UserRatingCount   int64   `json:"userRatingCount"`
}

// FetchDetails looks up one app by its numeric track ID. A lookup with no
// results means the app does not exist and is reported as an error; callers
// only branch on presence.
func (l *Lookup) FetchDetails(ctx context.Context, id string) (appmeta.Record, error) {
	endpoint, err := url.Parse(l.endpoint)
	if err != nil {
		return appmeta.Record{}, fmt.Errorf("parse lookup endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("country", l.country)
	q.Set("id", id)
	endpoint.RawQuery = q.Encode()

	resp, err := l.client.Get(ctx, endpoint.String())
	if err != nil {
		return appmeta.Record{}, fmt.Errorf("lookup request: %w", err)
	}

	var payload struct {
		Results []lookupResult `json:"results"`
	}
	if err := httputil.DecodeJSON(resp, &payload); err != nil {
		return appmeta.Record{}, fmt.Errorf("lookup response: %w", err)
	}
	if len(payload.Results) == 0 {
		return appmeta.Record{}, fmt.Errorf("app %s not found", id)
	}

	app := payload.Results[0]
	icon := app.ArtworkURL512
	if icon == "" {
		icon = app.ArtworkURL100
	}

	return appmeta.Record{
		Store:       appmeta.StoreIOS,
		ID:          id,
		Name:        app.TrackName,
		Developer:   app.ArtistName,
		Price:       app.FormattedPrice,
		IconURL:     icon,
		Rating:      app.AverageUserRating,
		ReviewCount: FormatReviewCount(app.UserRatingCount),
		StoreURL:    app.TrackViewURL,
	}, nil
}

// FormatReviewCount renders a raw rating count as a localized display string:
// counts of 10,000 and above become "1.5万件", smaller counts "9,999件".
func FormatReviewCount(count int64) string {
	if count >= 10000 {
		return fmt.Sprintf("%.1f万件", float64(count)/10000)
	}
	return groupThousands(count) + "件"
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
