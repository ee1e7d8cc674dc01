package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	app "github.com/technophere/applinks/internal/app"
	"github.com/technophere/applinks/internal/app/domain/appmeta"
	"github.com/technophere/applinks/internal/config"
	"github.com/technophere/applinks/pkg/logger"
)

const upstreamDetailsPage = `<html><body>
<h1 itemprop="name">Play App</h1>
<a href="/store/apps/dev?id=1">Play Dev</a>
<img alt="Icon image" src="https://cdn/icon.png">
<div itemprop="starRating"><div itemprop="ratingValue">4.1</div></div>
</body></html>`

const upstreamSearchPage = `<html><body>
<a href="/store/apps/details?id=com.play.one"><span>Play One</span><img src="https://cdn/one.png"></a>
<a href="/store/apps/details?id=com.play.two"><span>Play Two</span></a>
</body></html>`

const upstreamLookupPayload = `{"results":[{
  "trackName": "Store App",
  "artistName": "Store Dev",
  "artworkUrl512": "https://cdn/512.png",
  "formattedPrice": "無料",
  "trackViewUrl": "https://apps.apple.com/jp/app/id42",
  "averageUserRating": 4.8,
  "userRatingCount": 12000
}]}`

// newTestServer builds the full application against a fake upstream and
// returns the API under test.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	upstreamMux := http.NewServeMux()
	upstreamMux.HandleFunc("/store/apps/details", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, upstreamDetailsPage)
	})
	upstreamMux.HandleFunc("/store/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, upstreamSearchPage)
	})
	upstreamMux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, upstreamLookupPayload)
	})
	upstream := httptest.NewServer(upstreamMux)
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.Upstream.PlayBaseURL = upstream.URL
	cfg.Upstream.LookupEndpoint = upstream.URL + "/lookup"
	cfg.Upstream.Timeout = 5 * time.Second
	cfg.Refresh.MinFetchInterval = time.Millisecond

	log := logger.NewDefault("httpapi-test")
	log.SetOutput(io.Discard)

	application, err := app.New(app.Stores{}, cfg, log)
	if err != nil {
		t.Fatalf("build application: %v", err)
	}

	server := httptest.NewServer(NewHandler(application))
	t.Cleanup(server.Close)
	return server
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSearchEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/search?term=play")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var results []appmeta.SearchResult
	decodeBody(t, resp, &results)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "com.play.one" || results[0].Name != "Play One" {
		t.Fatalf("unexpected first result: %#v", results[0])
	}
}

func TestSearchEndpoint_MissingTerm(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/search")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLookupEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/lookup?store=ios&id=42")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var rec appmeta.Record
	decodeBody(t, resp, &rec)
	if rec.Name != "Store App" || rec.Store != appmeta.StoreIOS || rec.ID != "42" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.ReviewCount != "1.2万件" {
		t.Fatalf("review count = %q", rec.ReviewCount)
	}
}

func TestLookupEndpoint_UnknownStore(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/lookup?store=amazon&id=42")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestResolveEndpoint(t *testing.T) {
	server := newTestServer(t)

	body := `{"store":"google_play","id":"com.play.app","name":"Manual Name","storeUrl":"https://example.com/manual"}`
	resp, err := http.Post(server.URL+"/resolve", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var rec appmeta.Record
	decodeBody(t, resp, &rec)
	if rec.Name != "Play App" {
		t.Fatalf("cached name must override the manual one, got %q", rec.Name)
	}
	if rec.Rating != 4.1 {
		t.Fatalf("rating = %v", rec.Rating)
	}
}

func TestResolveEndpoint_MissingIdentity(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/resolve", "application/json", strings.NewReader(`{"name":"x"}`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRegistryEndpoints(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	resp, err := client.Post(server.URL+"/apps", "application/json",
		strings.NewReader(`{"store":"ios","id":"42"}`))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	resp, err = client.Get(server.URL + "/apps")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []appmeta.RegistryEntry
	decodeBody(t, resp, &entries)
	if len(entries) != 1 || entries[0].ID != "42" || entries[0].Store != appmeta.StoreIOS {
		t.Fatalf("unexpected registry entries: %#v", entries)
	}

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/apps/ios/42", nil)
	if err != nil {
		t.Fatalf("build delete: %v", err)
	}
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, err = client.Get(server.URL + "/apps")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	entries = nil
	decodeBody(t, resp, &entries)
	if len(entries) != 0 {
		t.Fatalf("expected empty registry, got %#v", entries)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	resp, err := client.Post(server.URL+"/apps", "application/json",
		strings.NewReader(`{"store":"google_play","id":"com.play.app"}`))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp.Body.Close()

	resp, err = client.Post(server.URL+"/refresh", "", nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var status map[string]string
	decodeBody(t, resp, &status)
	if status["status"] != "ok" {
		t.Fatalf("unexpected health payload: %#v", status)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/search", "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
