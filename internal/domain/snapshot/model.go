package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category groups cached upstream payloads that share a freshness window.
type Category string

const (
	CategoryBootstrap       Category = "bootstrap"
	CategoryFixtures        Category = "fixtures"
	CategoryLive            Category = "live"
	CategoryLeagueStandings Category = "league_standings"
	CategoryLeaguePicks     Category = "league_picks"
	CategoryLeagueHistory   Category = "league_history"
	CategoryEntryPicks      Category = "entry_picks"
	CategoryEntryHistory    Category = "entry_history"
	CategoryEntryTransfers  Category = "entry_transfers"
	CategoryFinishedGW      Category = "finished_gw"
)

// DefaultTTL applies to categories missing from the TTL table.
const DefaultTTL = 5 * time.Minute

var ttlByCategory = map[Category]time.Duration{
	CategoryBootstrap:       6 * time.Hour,
	CategoryFixtures:        6 * time.Hour,
	CategoryLive:            60 * time.Second,
	CategoryLeagueStandings: 5 * time.Minute,
	CategoryLeaguePicks:     5 * time.Minute,
	CategoryLeagueHistory:   5 * time.Minute,
	CategoryEntryPicks:      5 * time.Minute,
	CategoryEntryHistory:    5 * time.Minute,
	CategoryEntryTransfers:  5 * time.Minute,
}

// TTL returns the freshness window of the category. Finished gameweek data
// is immutable, so the second return is false for it: it never expires.
func (c Category) TTL() (time.Duration, bool) {
	if c == CategoryFinishedGW {
		return 0, false
	}
	if ttl, ok := ttlByCategory[c]; ok {
		return ttl, true
	}
	return DefaultTTL, true
}

func (c Category) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return fmt.Errorf("snapshot category is required")
	}
	return nil
}

// FreshnessPolicy says how a single fetch may use the cache.
type FreshnessPolicy int

const (
	// PolicyCached serves any entry that is still within its TTL.
	PolicyCached FreshnessPolicy = iota
	// PolicyForceRefresh always goes to the network and overwrites the entry.
	PolicyForceRefresh
	// PolicyPermanentOnceFinished serves only entries captured after the
	// gameweek finished and stores new ones without expiry.
	PolicyPermanentOnceFinished
)

func (p FreshnessPolicy) String() string {
	switch p {
	case PolicyCached:
		return "cached"
	case PolicyForceRefresh:
		return "force_refresh"
	case PolicyPermanentOnceFinished:
		return "permanent_once_finished"
	default:
		return "unknown(" + strconv.Itoa(int(p)) + ")"
	}
}

// PolicyFor picks the policy for gameweek scoped data.
func PolicyFor(finished bool) FreshnessPolicy {
	if finished {
		return PolicyPermanentOnceFinished
	}
	return PolicyCached
}

// Entry is one cached upstream payload plus its metadata.
type Entry struct {
	Key       string
	Category  Category
	Gameweek  int
	Payload   []byte
	FetchedAt time.Time
	Permanent bool
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Key) == "" {
		return fmt.Errorf("snapshot key is required")
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	if e.Gameweek < 0 {
		return fmt.Errorf("snapshot gameweek must be >= 0")
	}
	if e.FetchedAt.IsZero() {
		return fmt.Errorf("snapshot fetched_at is required")
	}
	return nil
}

// NeverExpires reports whether the entry belongs to a finished gameweek.
func (e Entry) NeverExpires() bool {
	return e.Permanent || e.Category == CategoryFinishedGW
}

func (e Entry) Expired(now time.Time) bool {
	if e.NeverExpires() {
		return false
	}
	ttl, _ := e.Category.TTL()
	return !now.Before(e.FetchedAt.Add(ttl))
}

// Fresh reports whether the entry may be served under the given policy.
func (e Entry) Fresh(now time.Time, policy FreshnessPolicy) bool {
	switch policy {
	case PolicyForceRefresh:
		return false
	case PolicyPermanentOnceFinished:
		return e.NeverExpires()
	default:
		return !e.Expired(now)
	}
}

// Key builds "{category}_{scope}_gw{gameweek}", leaving out empty parts.
func Key(category Category, scope string, gameweek int) string {
	var b strings.Builder
	b.WriteString(string(category))
	if scope = strings.TrimSpace(scope); scope != "" {
		b.WriteByte('_')
		b.WriteString(scope)
	}
	if gameweek > 0 {
		b.WriteString("_gw")
		b.WriteString(strconv.Itoa(gameweek))
	}
	return b.String()
}

// Envelope is the stored shape of a payload.
type Envelope struct {
	Data     json.RawMessage `json:"data"`
	Gameweek int             `json:"gameweek"`
}

// Metadata is the sibling record used for TTL checks and retention.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Gameweek  int       `json:"gw"`
	Category  Category  `json:"category"`
	Permanent bool      `json:"permanent,omitempty"`
}

func MetadataOf(e Entry) Metadata {
	return Metadata{
		Timestamp: e.FetchedAt,
		Gameweek:  e.Gameweek,
		Category:  e.Category,
		Permanent: e.Permanent,
	}
}

func EnvelopeOf(e Entry) Envelope {
	return Envelope{Data: json.RawMessage(e.Payload), Gameweek: e.Gameweek}
}

// Assemble rebuilds an entry from its stored parts.
func Assemble(key string, env Envelope, meta Metadata) Entry {
	gw := meta.Gameweek
	if gw == 0 {
		gw = env.Gameweek
	}
	return Entry{
		Key:       key,
		Category:  meta.Category,
		Gameweek:  gw,
		Payload:   []byte(env.Data),
		FetchedAt: meta.Timestamp,
		Permanent: meta.Permanent,
	}
}
