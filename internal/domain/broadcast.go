package domain

import (
	"maps"
	"time"
)

// Broadcast is the single latest-utterance slot of a room.
// Each new broadcast replaces the previous one; there is no history.
type Broadcast struct {
	Original        string            `json:"original"`
	Translations    map[string]string `json:"translated"`
	SourceLanguage  string            `json:"source_language"`
	SenderID        UserID            `json:"sender_id,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	SpeechRequested bool              `json:"enable_speech"`
}

func (b Broadcast) Empty() bool { return b.Original == "" }

// Clone copies the translations map so the result can leave a lock.
func (b Broadcast) Clone() Broadcast {
	b.Translations = maps.Clone(b.Translations)
	return b
}

// FromPivot reports whether the broadcast was spoken in the room's pivot language.
func (b Broadcast) FromPivot(pivot string) bool {
	return b.SourceLanguage == pivot
}

// SentBy decides whether viewer authored b. Broadcasts recorded without a
// sender fall back to matching the viewer's language.
func (b Broadcast) SentBy(viewer User) bool {
	if b.SenderID != "" {
		return b.SenderID == viewer.ID
	}
	return b.SourceLanguage == viewer.Language
}

// VisibleMessage is what one viewer gets back from a poll.
type VisibleMessage struct {
	Original        string    `json:"original"`
	Translated      string    `json:"translated"`
	Timestamp       time.Time `json:"timestamp"`
	IsHost          bool      `json:"is_host"`
	ShowTranslation bool      `json:"show_translation"`
	OwnMessage      bool      `json:"show_own_message"`
	SpeechRequested bool      `json:"enable_speech"`
}

// Project applies the directional read rule: the host hears everyone in
// the pivot language, spokes hear the host in their own language and
// see their own replies confirmed, and spokes never see each other.
func Project(b Broadcast, viewer User, pivot string) VisibleMessage {
	out := VisibleMessage{Timestamp: b.Timestamp, IsHost: viewer.IsHost}
	if b.Empty() {
		return out
	}

	fromPivot := b.FromPivot(pivot)
	switch {
	case viewer.IsHost && fromPivot:
		out.Original = b.Original
	case viewer.IsHost:
		out.Original = b.Translations[pivot]
	case fromPivot:
		out.Original = b.Original
		out.Translated = b.Translations[viewer.Language]
		out.ShowTranslation = true
		out.SpeechRequested = b.SpeechRequested
	case b.SentBy(viewer):
		out.Original = b.Original
		out.Translated = b.Translations[pivot]
		out.OwnMessage = true
	}
	return out
}
