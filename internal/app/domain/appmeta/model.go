// Package appmeta holds the core types for resolved app store metadata.
package appmeta

import (
	"fmt"
	"time"
)

// Store identifies the upstream marketplace a record originates from.
type Store string

const (
	StoreIOS        Store = "ios"
	StoreGooglePlay Store = "google_play"
)

// Valid reports whether the store is one of the supported marketplaces.
func (s Store) Valid() bool {
	return s == StoreIOS || s == StoreGooglePlay
}

// ParseStore validates a raw store identifier.
func ParseStore(raw string) (Store, error) {
	s := Store(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown store %q", raw)
	}
	return s, nil
}

// Record is a resolved metadata snapshot for one app. Price and ReviewCount
// are display strings; an empty Price means free or unknown, and a Rating of
// zero means no rating is available rather than zero stars. LastUpdated is a
// calendar date in YYYY.MM.DD form, stamped at fetch time.
type Record struct {
	Store       Store   `json:"store"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Developer   string  `json:"developer"`
	Price       string  `json:"price"`
	IconURL     string  `json:"iconUrl"`
	Rating      float64 `json:"rating"`
	ReviewCount string  `json:"reviewCount"`
	StoreURL    string  `json:"storeUrl"`
	LastUpdated string  `json:"lastUpdated"`
}

// DateLayout is the display layout used for Record.LastUpdated.
const DateLayout = "2006.01.02"

// SearchResult is the lightweight projection returned by interactive search.
// It is never cached or registered.
type SearchResult struct {
	ID        string `json:"id"`
	Store     Store  `json:"store"`
	Name      string `json:"name"`
	IconURL   string `json:"iconUrl"`
	Developer string `json:"developer"`
	Price     string `json:"price"`
}

// RegistryEntry tracks an app the service has been asked about, driving the
// scheduled refresh. Entries are never deleted automatically.
type RegistryEntry struct {
	Store   Store     `json:"store"`
	ID      string    `json:"id"`
	AddedAt time.Time `json:"addedAt"`
}

// Key returns the registry key for a (store, id) pair.
func Key(store Store, id string) string {
	return string(store) + ":" + id
}
