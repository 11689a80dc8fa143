package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Category is the normalized intent of a mention.
type Category string

const (
	Impersonation Category = "Impersonation"
	ViralThread   Category = "ViralThread"
	FactCheck     Category = "FactCheck"
	Sentiment     Category = "Sentiment"
	Meme          Category = "Meme"
	Generic       Category = "Generic"
	Unknown       Category = "Unknown"
)

// Known lists every category a handler exists for.
var Known = []Category{Impersonation, ViralThread, FactCheck, Sentiment, Meme, Generic}

// ScreenshotFallback is replied when a screenshot analysis came back empty.
const ScreenshotFallback = "Wow! you got me, I don't have any response"

// ErrMalformed is returned when a known category carries a payload of the
// wrong shape.
var ErrMalformed = errors.New("middleware: malformed result payload")

// Payload is one of TextPayload, ThreadPayload, EmotionPayload or
// ImagePayload.
type Payload interface {
	isPayload()
}

// TextPayload is free text that will be split into chunks.
type TextPayload struct {
	Text string
}

// ThreadPayload is an ordered list of thread fragments.
type ThreadPayload struct {
	Fragments []string
}

// Emotion is one entry of an emotion profile.
type Emotion struct {
	Name  string
	Score float64
}

// EmotionPayload is a sentiment profile. Emotions keep the order the service
// sent them in; the chart relies on it.
type EmotionPayload struct {
	Dominant string
	Emotions []Emotion
}

// ImagePayload points at an image to attach.
type ImagePayload struct {
	URL string
}

func (TextPayload) isPayload()    {}
func (ThreadPayload) isPayload()  {}
func (EmotionPayload) isPayload() {}
func (ImagePayload) isPayload()   {}

// ChartValues returns each score as an integer percentage, truncated.
func (e EmotionPayload) ChartValues() []int {
	out := make([]int, len(e.Emotions))
	for i, em := range e.Emotions {
		out[i] = int(em.Score * 100)
	}
	return out
}

// ChartURL appends the comma-joined chart values to base.
func (e EmotionPayload) ChartURL(base string) string {
	vals := e.ChartValues()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return base + strings.Join(parts, ",")
}

// Result is a classified mention.
type Result struct {
	Category Category
	// Label is the category string as sent by the service.
	Label   string
	Payload Payload
}

var labels = map[string]Category{
	"persona_simulation":  Impersonation,
	"thread_generation":   ViralThread,
	"fact_checking":       FactCheck,
	"sentiment_analysis":  Sentiment,
	"meme_generation":     Meme,
	"tweet_helper":        Generic,
	"screenshot_research": Generic,
}

// ParseCategory maps a service label or a canonical name to a Category.
func ParseCategory(label string) Category {
	l := strings.TrimSpace(label)
	if c, ok := labels[strings.ToLower(l)]; ok {
		return c
	}
	for _, c := range Known {
		if strings.EqualFold(l, string(c)) {
			return c
		}
	}
	return Unknown
}

type envelope struct {
	Category string          `json:"category"`
	Result   json.RawMessage `json:"result"`
}

// ParseResponse decodes a `{category, result}` document. An unrecognized
// category yields Unknown with a nil payload and no error.
func ParseResponse(body []byte) (Result, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	res := Result{Category: ParseCategory(env.Category), Label: env.Category}
	if res.Category == Unknown {
		return res, nil
	}
	p, err := decodePayload(strings.ToLower(strings.TrimSpace(env.Category)), res.Category, env.Result)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Category, err)
	}
	res.Payload = p
	return res, nil
}

func decodePayload(label string, cat Category, raw json.RawMessage) (Payload, error) {
	switch label {
	case "persona_simulation":
		var r struct {
			Response json.RawMessage `json:"response"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return TextPayload{Text: scalarText(r.Response)}, nil
	case "tweet_helper":
		var r struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return TextPayload{Text: scalarText(r.Result)}, nil
	case "screenshot_research":
		return screenshotText(raw)
	case "fact_checking":
		var r struct {
			Analyses struct {
				Wikipedia struct {
					Articles []struct {
						Content string `json:"content"`
					} `json:"articles"`
				} `json:"wikipedia"`
			} `json:"analyses"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		if len(r.Analyses.Wikipedia.Articles) == 0 {
			return TextPayload{}, nil
		}
		return TextPayload{Text: r.Analyses.Wikipedia.Articles[0].Content}, nil
	}

	switch cat {
	case ViralThread:
		return threadFragments(raw)
	case Sentiment:
		return emotionProfile(raw)
	case Meme:
		var r struct {
			URL string `json:"url"`
		}
		if s, ok := jsonString(raw); ok {
			return ImagePayload{URL: s}, nil
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return ImagePayload{URL: r.URL}, nil
	default:
		return TextPayload{Text: looseText(raw)}, nil
	}
}

func threadFragments(raw json.RawMessage) (Payload, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := jsonString(it); ok {
			out = append(out, s)
			continue
		}
		var frag struct {
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(it, &frag); err != nil {
			return nil, err
		}
		out = append(out, scalarText(frag.Content))
	}
	return ThreadPayload{Fragments: out}, nil
}

type profileDoc struct {
	Dominant string          `json:"dominant_emotion"`
	Detailed json.RawMessage `json:"detailed_emotions"`
}

func emotionProfile(raw json.RawMessage) (Payload, error) {
	var r struct {
		Analysis struct {
			Profile *profileDoc `json:"emotion_profile"`
		} `json:"analysis"`
		Profile *profileDoc `json:"emotion_profile"`
		profileDoc
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	prof := r.profileDoc
	switch {
	case r.Analysis.Profile != nil:
		prof = *r.Analysis.Profile
	case r.Profile != nil:
		prof = *r.Profile
	}
	emotions, err := orderedScores(prof.Detailed)
	if err != nil {
		return nil, err
	}
	return EmotionPayload{Dominant: prof.Dominant, Emotions: emotions}, nil
}

// orderedScores decodes a JSON object of scores keeping key order.
func orderedScores(raw json.RawMessage) ([]Emotion, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("detailed_emotions is not an object")
	}
	var out []Emotion
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		score, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("emotion %q: %w", key, err)
		}
		out = append(out, Emotion{Name: key, Score: score})
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("unexpected score %v", v)
	}
}

func screenshotText(raw json.RawMessage) (Payload, error) {
	var r struct {
		Analysis        json.RawMessage `json:"analysis"`
		AIResponse      string          `json:"ai_response"`
		OriginalCaption string          `json:"original_caption"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if a := bytes.TrimSpace(r.Analysis); len(a) > 0 && string(a) != "null" {
		var inner struct {
			Analysis json.RawMessage `json:"analysis"`
		}
		if err := json.Unmarshal(a, &inner); err == nil {
			if t := scalarText(inner.Analysis); t != "" {
				return TextPayload{Text: t}, nil
			}
		}
	}
	switch {
	case r.AIResponse != "":
		return TextPayload{Text: r.AIResponse}, nil
	case r.OriginalCaption != "":
		return TextPayload{Text: r.OriginalCaption}, nil
	}
	return TextPayload{Text: ScreenshotFallback}, nil
}

// looseText accepts a bare string or an object with one of the usual text
// fields.
func looseText(raw json.RawMessage) string {
	if s, ok := jsonString(raw); ok {
		return s
	}
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil {
		return ""
	}
	for _, k := range []string{"response", "result", "text", "content"} {
		if v, ok := m[k]; ok {
			return scalarText(v)
		}
	}
	return ""
}

func jsonString(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// scalarText renders a JSON value as reply text: strings verbatim, null as
// empty, anything else as compact JSON.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if s, ok := jsonString(raw); ok {
		return s
	}
	return string(raw)
}
