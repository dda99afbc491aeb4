package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/translate"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// dictTranslator answers from a fixed phrasebook and tags anything else.
type dictTranslator struct {
	mu    sync.Mutex
	dict  map[string]string
	fail  map[string]bool
	calls int
}

func newDictTranslator() *dictTranslator {
	return &dictTranslator{
		dict: map[string]string{
			"bonjour|fr|en": "good morning",
			"bonjour|fr|es": "buenos días",
			"hello|en|fr":   "bonjour",
			"hola|es|fr":    "salut",
		},
		fail: map[string]bool{},
	}
}

func (d *dictTranslator) Lookup(_ context.Context, text, source, target string) (translate.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.fail[target] {
		err := &translate.ProviderError{Primary: "google", PrimaryErr: errors.New("unavailable")}
		return translate.Result{Text: "Translation error: unavailable", Degraded: true}, err
	}
	if out, ok := d.dict[text+"|"+source+"|"+target]; ok {
		return translate.Result{Text: out, Provider: "dict"}, nil
	}
	return translate.Result{Text: "[" + target + "] " + text, Provider: "dict"}, nil
}

func (d *dictTranslator) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func newTestRegistry(t *testing.T, clock *testClock, tr Translator) *Registry {
	t.Helper()
	return NewRegistry(tr, PivotPolicy{}, Options{Now: clock.Now})
}

// frenchRoom creates a room hosted in French with one English and one
// Spanish participant.
func frenchRoom(t *testing.T, reg *Registry) (roomID domain.RoomID, host, en, es domain.UserID) {
	t.Helper()
	roomID, host, err := reg.CreateRoom("Claire", "fr", "Atelier", "")
	require.NoError(t, err)
	en, err = reg.JoinRoom(roomID, "Sam", "en", "")
	require.NoError(t, err)
	es, err = reg.JoinRoom(roomID, "Lucía", "es", "")
	require.NoError(t, err)
	return roomID, host, en, es
}
