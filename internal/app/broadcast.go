package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const maxFanout = 4

var errorPlaceholders = map[string]string{
	"en": "Translation error",
	"fr": "Erreur de traduction",
	"es": "Error de traducción",
	"de": "Übersetzungsfehler",
	"it": "Errore di traduzione",
	"pt": "Erro de tradução",
	"nl": "Vertaalfout",
	"ru": "Ошибка перевода",
}

// ErrorPlaceholder is shown in place of a translation that failed.
func ErrorPlaceholder(lang string) string {
	if p, ok := errorPlaceholders[domain.BaseLanguage(lang)]; ok {
		return p
	}
	return errorPlaceholders["en"]
}

type langResult struct {
	lang string
	text string
}

// BroadcastTranslation translates text per the room's policy and replaces
// the room's latest broadcast. A failing language gets a placeholder and
// never fails the broadcast. requestSpeech can only mute speech, never
// enable it for a spoke reply.
func (r *Registry) BroadcastTranslation(ctx context.Context, roomID domain.RoomID, text, sourceLanguage string,
	senderID domain.UserID, requestSpeech bool,
) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrMissingText
	}
	source := domain.CanonicalLanguage(sourceLanguage)
	if source == "" {
		return domain.ErrMissingLanguage
	}
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	plan := r.policy.Plan(room, source)
	translations := r.translateAll(ctx, text, source, plan.Targets)

	b := domain.Broadcast{
		Original:        text,
		Translations:    translations,
		SourceLanguage:  source,
		SenderID:        senderID,
		Timestamp:       r.now(),
		SpeechRequested: plan.SpeechRequested && requestSpeech,
	}
	// The room may have been torn down while providers were busy.
	if _, live := r.rooms.Get(roomID); !live {
		return domain.ErrRoomNotFound
	}
	room.Publish(b)

	log.Info().Str("module", "app.broadcast").Str("room", string(roomID)).Str("source", source).
		Bool("from_host", plan.FromHost).Int("languages", len(translations)).Msg("broadcast")
	return nil
}

func (r *Registry) translateAll(ctx context.Context, text, source string, targets []string) map[string]string {
	p := pool.NewWithResults[langResult]().WithMaxGoroutines(maxFanout)
	for _, lang := range targets {
		p.Go(func() langResult {
			return r.translateOne(ctx, text, source, lang)
		})
	}
	out := make(map[string]string, len(targets))
	for _, res := range p.Wait() {
		out[res.lang] = res.text
	}
	return out
}

func (r *Registry) translateOne(ctx context.Context, text, source, target string) (res langResult) {
	res.lang = target
	if target == source {
		res.text = text
		return res
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.broadcast").Str("target", target).Err(fmt.Errorf("%v", rec)).Msg("translator panicked")
			res.text = ErrorPlaceholder(target)
		}
	}()
	if r.translator == nil {
		res.text = ErrorPlaceholder(target)
		return res
	}
	out, err := r.translator.Lookup(ctx, text, source, target)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.broadcast").Str("target", target).Msg("translation failed")
		res.text = ErrorPlaceholder(target)
		return res
	}
	res.text = out.Text
	return res
}
