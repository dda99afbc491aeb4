package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const monthLayout = "2006-01"

// UsageRecord is the persisted form of the monthly counters.
type UsageRecord struct {
	Month    string         `json:"month"`
	Counters map[string]int `json:"counters"`
}

// UsageStore loads the counters at startup and saves them after every update.
type UsageStore interface {
	Load() (UsageRecord, error)
	Save(UsageRecord) error
}

// FileStore keeps the usage record in a small JSON file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns an empty record when the file does not exist yet.
func (s *FileStore) Load() (UsageRecord, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return UsageRecord{Counters: map[string]int{}}, nil
	}
	if err != nil {
		return UsageRecord{}, fmt.Errorf("read counters: %w", err)
	}
	var rec UsageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return UsageRecord{}, fmt.Errorf("parse counters: %w", err)
	}
	if rec.Counters == nil {
		rec.Counters = map[string]int{}
	}
	return rec, nil
}

// Save writes through a temp file so a crash never leaves half a record.
func (s *FileStore) Save(rec UsageRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// ProviderUsage is a point-in-time view of one provider's quota.
type ProviderUsage struct {
	Name    string  `json:"name"`
	Used    int     `json:"used"`
	Quota   int     `json:"quota"`
	Percent float64 `json:"percent"`
}

// usage tracks characters sent to each provider during the current month.
type usage struct {
	mu       sync.Mutex
	month    string
	order    []string
	quotas   map[string]int
	counters map[string]int
	store    UsageStore
	now      func() time.Time
}

func newUsage(store UsageStore, order []string, quotas map[string]int, now func() time.Time) *usage {
	u := &usage{
		month:    now().Format(monthLayout),
		order:    order,
		quotas:   quotas,
		counters: make(map[string]int, len(order)),
		store:    store,
		now:      now,
	}
	rec, err := store.Load()
	switch {
	case err != nil:
		log.Error().Err(err).Str("module", "translate.usage").Msg("failed to load counters, starting from zero")
	case rec.Month != u.month:
		log.Info().Str("module", "translate.usage").Str("stored", rec.Month).Str("current", u.month).Msg("new month, counters reset")
	default:
		for name, n := range rec.Counters {
			u.counters[name] = n
		}
	}
	u.mu.Lock()
	u.persistLocked()
	u.mu.Unlock()
	return u
}

// rolloverLocked resets the counters once the wall-clock month changes.
func (u *usage) rolloverLocked() {
	month := u.now().Format(monthLayout)
	if month == u.month {
		return
	}
	log.Info().Str("module", "translate.usage").Str("from", u.month).Str("to", month).Msg("month changed, counters reset")
	u.month = month
	u.counters = make(map[string]int, len(u.order))
	u.persistLocked()
}

func (u *usage) persistLocked() {
	rec := UsageRecord{Month: u.month, Counters: make(map[string]int, len(u.counters))}
	for k, v := range u.counters {
		rec.Counters[k] = v
	}
	if err := u.store.Save(rec); err != nil {
		log.Error().Err(err).Str("module", "translate.usage").Msg("failed to save counters")
	}
}

func (u *usage) ratioLocked(name string) float64 {
	q := u.quotas[name]
	if q <= 0 {
		return 0
	}
	return float64(u.counters[name]) / float64(q)
}

func (u *usage) availableLocked(name string) bool {
	q := u.quotas[name]
	return q <= 0 || u.counters[name] < q
}

// pick returns the least saturated provider below quota, skipping exclude.
// When every candidate is saturated the first candidate is returned anyway.
func (u *usage) pick(exclude string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rolloverLocked()

	best, first := "", ""
	for _, name := range u.order {
		if name == exclude {
			continue
		}
		if first == "" {
			first = name
		}
		if !u.availableLocked(name) {
			continue
		}
		if best == "" || u.ratioLocked(name) < u.ratioLocked(best) {
			best = name
		}
	}
	if best != "" {
		return best, true
	}
	if first != "" {
		log.Warn().Str("module", "translate.usage").Str("provider", first).Msg("all providers over quota")
	}
	return first, first != ""
}

func (u *usage) add(name string, chars int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rolloverLocked()
	u.counters[name] += chars
	u.persistLocked()
	log.Debug().Str("module", "translate.usage").Str("provider", name).
		Int("used", u.counters[name]).Int("quota", u.quotas[name]).Msg("usage updated")
}

func (u *usage) snapshot() []ProviderUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rolloverLocked()
	out := make([]ProviderUsage, 0, len(u.order))
	for _, name := range u.order {
		out = append(out, ProviderUsage{
			Name:    name,
			Used:    u.counters[name],
			Quota:   u.quotas[name],
			Percent: u.ratioLocked(name) * 100,
		})
	}
	return out
}

func (u *usage) currentMonth() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rolloverLocked()
	return u.month
}
