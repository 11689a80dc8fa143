package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"persona_simulation":  Impersonation,
		"thread_generation":   ViralThread,
		"fact_checking":       FactCheck,
		"sentiment_analysis":  Sentiment,
		"meme_generation":     Meme,
		"tweet_helper":        Generic,
		"screenshot_research": Generic,
		"Generic":             Generic,
		"viralthread":         ViralThread,
		"":                    Unknown,
		"weather_report":      Unknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCategory(in), in)
	}
}

func TestParsePersona(t *testing.T) {
	res, err := ParseResponse([]byte(`{"category":"persona_simulation","result":{"response":"As Lincoln, I say hi."}}`))
	require.NoError(t, err)
	assert.Equal(t, Impersonation, res.Category)
	assert.Equal(t, TextPayload{Text: "As Lincoln, I say hi."}, res.Payload)
}

func TestParseThreadFragments(t *testing.T) {
	res, err := ParseResponse([]byte(`{"category":"thread_generation","result":[{"content":"one"},{"content":"two"},"three"]}`))
	require.NoError(t, err)
	assert.Equal(t, ThreadPayload{Fragments: []string{"one", "two", "three"}}, res.Payload)
}

func TestParseFactCheck(t *testing.T) {
	res, err := ParseResponse([]byte(`{"category":"fact_checking","result":{"analyses":{"wikipedia":{"articles":[{"content":"First."},{"content":"Second."}]}}}}`))
	require.NoError(t, err)
	assert.Equal(t, TextPayload{Text: "First."}, res.Payload)

	res, err = ParseResponse([]byte(`{"category":"fact_checking","result":{"analyses":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, TextPayload{}, res.Payload)
}

func TestParseSentimentKeepsOrder(t *testing.T) {
	body := `{"category":"sentiment_analysis","result":{"analysis":{"emotion_profile":{
		"dominant_emotion":"joy",
		"detailed_emotions":{"sadness":0.05,"joy":0.75,"anger":"0.29","fear":0}}}}}`
	res, err := ParseResponse([]byte(body))
	require.NoError(t, err)
	p, ok := res.Payload.(EmotionPayload)
	require.True(t, ok)
	assert.Equal(t, "joy", p.Dominant)
	names := make([]string, len(p.Emotions))
	for i, e := range p.Emotions {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"sadness", "joy", "anger", "fear"}, names)
	assert.Equal(t, []int{5, 75, 28, 0}, p.ChartValues())
	assert.Equal(t, "https://chart/?d=5,75,28,0", p.ChartURL("https://chart/?d="))
}

func TestParseSentimentBadScore(t *testing.T) {
	_, err := ParseResponse([]byte(`{"category":"Sentiment","result":{"dominant_emotion":"joy","detailed_emotions":{"joy":true}}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseMeme(t *testing.T) {
	res, err := ParseResponse([]byte(`{"category":"meme_generation","result":{"url":"https://img/meme.png"}}`))
	require.NoError(t, err)
	assert.Equal(t, ImagePayload{URL: "https://img/meme.png"}, res.Payload)
}

func TestParseTweetHelper(t *testing.T) {
	res, err := ParseResponse([]byte(`{"category":"tweet_helper","result":{"result":"Try this wording."}}`))
	require.NoError(t, err)
	assert.Equal(t, Generic, res.Category)
	assert.Equal(t, "tweet_helper", res.Label)
	assert.Equal(t, TextPayload{Text: "Try this wording."}, res.Payload)
}

func TestParseScreenshotFallbacks(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"analysis":{"analysis":"A chart of rates."}}`, "A chart of rates."},
		{`{"analysis":null,"ai_response":"Looks like a receipt."}`, "Looks like a receipt."},
		{`{"ai_response":"","original_caption":"sunset"}`, "sunset"},
		{`{}`, ScreenshotFallback},
	}
	for _, tc := range cases {
		res, err := ParseResponse([]byte(`{"category":"screenshot_research","result":` + tc.body + `}`))
		require.NoError(t, err, tc.body)
		assert.Equal(t, TextPayload{Text: tc.want}, res.Payload, tc.body)
	}
}

func TestParseCanonicalText(t *testing.T) {
	res, err := ParseResponse([]byte(`{"category":"Generic","result":"plain answer"}`))
	require.NoError(t, err)
	assert.Equal(t, TextPayload{Text: "plain answer"}, res.Payload)
}

func TestParseUnknownCategory(t *testing.T) {
	res, err := ParseResponse([]byte(`{"category":"horoscope","result":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Category)
	assert.Nil(t, res.Payload)
}

func TestParseMalformed(t *testing.T) {
	_, err := ParseResponse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseResponse([]byte(`{"category":"thread_generation","result":{"content":"x"}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}
