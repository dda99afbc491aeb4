package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dkeye/Parley/internal/domain"
)

const DefaultMyMemoryURL = "https://api.mymemory.translated.net"

// myMemoryCodes holds the regional variants MyMemory expects.
var myMemoryCodes = map[string]string{
	"zh-CN": "zh-CN",
	"en":    "en-GB",
	"es":    "es-ES",
	"de":    "de-DE",
	"it":    "it-IT",
	"pt":    "pt-PT",
	"ru":    "ru-RU",
	"ja":    "ja-JP",
	"ar":    "ar-SA",
	"uk":    "uk-UA",
	"fa":    "fa-IR",
	"hi":    "hi-IN",
	"bn":    "bn-IN",
	"te":    "te-IN",
	"mr":    "mr-IN",
	"fr":    "fr-FR",
}

// MyMemoryCode maps a language code to the form MyMemory accepts.
func MyMemoryCode(code string) string {
	if c, ok := myMemoryCodes[code]; ok {
		return c
	}
	if len(code) == 2 {
		return code + "-" + strings.ToUpper(code)
	}
	return code
}

// MyMemory has no language detection; the multiplexer never hands it "auto".
type MyMemory struct {
	BaseURL string
	Email   string
	Client  *http.Client
}

func NewMyMemory(baseURL, email string, timeout time.Duration) *MyMemory {
	if baseURL == "" {
		baseURL = DefaultMyMemoryURL
	}
	return &MyMemory{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Email:   email,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (m *MyMemory) Name() string { return "mymemory" }

func (m *MyMemory) SupportsAuto() bool { return false }

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	// responseStatus arrives as a number or as a quoted number.
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
}

func (m *MyMemory) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == domain.AutoLanguage {
		return "", fmt.Errorf("mymemory: source language %q not supported", source)
	}
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", MyMemoryCode(source)+"|"+MyMemoryCode(target))
	if m.Email != "" {
		q.Set("de", m.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+"/get?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mymemory: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("mymemory: unexpected status %d", resp.StatusCode)
	}

	var body myMemoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("mymemory: decode: %w", err)
	}
	if status := parseStatus(body.ResponseStatus); status != 0 && status != http.StatusOK {
		return "", fmt.Errorf("mymemory: status %d: %s", status, body.ResponseDetails)
	}
	if body.ResponseData.TranslatedText == "" {
		return "", ErrEmptyTranslation
	}
	return body.ResponseData.TranslatedText, nil
}

func parseStatus(raw json.RawMessage) int {
	s := strings.Trim(string(raw), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
