package dispatch

import (
	"context"
	"log/slog"

	"sidehug/internal/middleware"
	"sidehug/internal/textsplit"
)

const (
	// MaxThreadFragments caps the replies posted for a generated thread.
	MaxThreadFragments = 5

	SentimentPrefix = "By my analysis this tweet is: "
	MemeText        = "Here's a response for you!"
)

type handlerFunc func(ctx context.Context, run *mentionRun) error

func (d *Dispatcher) handlers() map[middleware.Category]handlerFunc {
	return map[middleware.Category]handlerFunc{
		middleware.Impersonation: d.replyText,
		middleware.FactCheck:     d.replyText,
		middleware.Generic:       d.replyText,
		middleware.ViralThread:   d.replyThread,
		middleware.Sentiment:     d.replySentiment,
		middleware.Meme:          d.replyMeme,
	}
}

// replyText splits free text and posts every chunk as a reply to the mention,
// in the order the splitter returns them.
func (d *Dispatcher) replyText(ctx context.Context, run *mentionRun) error {
	p, ok := run.result.Payload.(middleware.TextPayload)
	if !ok {
		return d.payloadMismatch(run)
	}
	for _, chunk := range textsplit.Split(p.Text, d.maxLength()) {
		if err := d.reply(ctx, run, chunk, nil); err != nil {
			return err
		}
	}
	return nil
}

// replyThread posts the first fragments in reverse, each hard-truncated.
func (d *Dispatcher) replyThread(ctx context.Context, run *mentionRun) error {
	p, ok := run.result.Payload.(middleware.ThreadPayload)
	if !ok {
		return d.payloadMismatch(run)
	}
	frags := p.Fragments
	if len(frags) > MaxThreadFragments {
		frags = frags[:MaxThreadFragments]
	}
	for i := len(frags) - 1; i >= 0; i-- {
		if err := d.reply(ctx, run, textsplit.Truncate(frags[i], d.maxLength()), nil); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) replySentiment(ctx context.Context, run *mentionRun) error {
	p, ok := run.result.Payload.(middleware.EmotionPayload)
	if !ok {
		return d.payloadMismatch(run)
	}
	if d.ChartBaseURL == "" {
		slog.Warn("dispatch: chart base url not configured, skipping sentiment reply", "uri", run.mention.Post.URI)
		return nil
	}
	text := SentimentPrefix + p.Dominant
	return d.replyWithImage(ctx, run, p.ChartURL(d.ChartBaseURL), text)
}

func (d *Dispatcher) replyMeme(ctx context.Context, run *mentionRun) error {
	p, ok := run.result.Payload.(middleware.ImagePayload)
	if !ok {
		return d.payloadMismatch(run)
	}
	return d.replyWithImage(ctx, run, p.URL, MemeText)
}

// replyWithImage posts text with the image attached. Without an attachment
// nothing is posted.
func (d *Dispatcher) replyWithImage(ctx context.Context, run *mentionRun, url, text string) error {
	if d.Images == nil || url == "" {
		slog.Warn("dispatch: no image to attach", "uri", run.mention.Post.URI, "category", run.result.Category)
		return nil
	}
	att := d.Images.Build(ctx, url, text)
	if att == nil {
		slog.Warn("dispatch: image attachment failed, not replying", "uri", run.mention.Post.URI, "image_url", url)
		return nil
	}
	return d.reply(ctx, run, text, att)
}

func (d *Dispatcher) payloadMismatch(run *mentionRun) error {
	slog.Error("dispatch: payload does not match category",
		"uri", run.mention.Post.URI,
		"category", run.result.Category,
		"payload", payloadKind(run.result.Payload),
	)
	return nil
}

func payloadKind(p middleware.Payload) string {
	switch p.(type) {
	case middleware.TextPayload:
		return "text"
	case middleware.ThreadPayload:
		return "thread"
	case middleware.EmotionPayload:
		return "emotion"
	case middleware.ImagePayload:
		return "image"
	case nil:
		return "none"
	}
	return "other"
}
