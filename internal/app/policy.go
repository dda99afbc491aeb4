package app

import "github.com/dkeye/Parley/internal/core"

// Plan says where one broadcast goes.
type Plan struct {
	FromHost        bool
	Targets         []string
	SpeechRequested bool
}

type Policy interface {
	Plan(room core.RoomService, sourceLanguage string) Plan
}

// PivotPolicy routes the host's utterances to every spoke language in the
// room and spoke replies to the host's language only.
type PivotPolicy struct{}

func (PivotPolicy) Plan(room core.RoomService, sourceLanguage string) Plan {
	pivot := room.Room().Pivot
	if sourceLanguage == pivot {
		return Plan{FromHost: true, Targets: room.SpokeLanguages(), SpeechRequested: true}
	}
	return Plan{Targets: []string{pivot}}
}
