// Package dispatch answers mentions of the bot account: it resolves the
// thread a mention was posted into, asks the classification service what to
// do and posts the replies.
package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"sidehug/internal/metrics"
	"sidehug/internal/middleware"
	"sidehug/internal/model"
	"sidehug/internal/textsplit"
)

// Transport is the subset of the social network client the dispatcher uses.
type Transport interface {
	ListNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	GetPost(ctx context.Context, uri string) (*model.Post, error)
	Reply(ctx context.Context, text string, reply model.ReplyRef, att *model.Attachment) (model.StrongRef, error)
	UpdateSeen(ctx context.Context, seenAt time.Time) error
	Handle() string
}

// ImageBuilder fetches raw images and builds uploaded attachments.
type ImageBuilder interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Build(ctx context.Context, url, alt string) *model.Attachment
}

// HandledStore remembers answered mentions across restarts.
type HandledStore interface {
	IsHandled(ctx context.Context, uri string) (bool, error)
	MarkHandled(ctx context.Context, uri string, ttl time.Duration) error
}

// Dispatcher processes unread mentions. A cycle handles mentions one at a
// time, oldest first.
type Dispatcher struct {
	Transport  Transport
	Classifier middleware.Classifier
	Images     ImageBuilder
	Handled    HandledStore // optional

	ChartBaseURL      string
	MaxLength         int
	NotificationLimit int
	HandledTTL        time.Duration
}

// Stats summarises one cycle.
type Stats struct {
	Mentions  int
	Completed int
	Replies   int
	Failures  int
}

// Outcomes recorded when a mention completes.
const (
	OutcomeReplied              = "replied"
	OutcomePartial              = "partial"
	OutcomeNoReply              = "no_reply"
	OutcomeDuplicate            = "duplicate"
	OutcomeUnknownCategory      = "unknown_category"
	OutcomeClassificationFailed = "classification_failed"
	OutcomePanic                = "panic"
)

// RunCycle fetches notifications and processes every unread mention. It
// returns early with an error wrapping model.ErrAuth when the session is
// rejected; the mention being processed stays unread, and is only marked read
// on the next cycle if some reply to it already went out.
func (d *Dispatcher) RunCycle(ctx context.Context) (Stats, error) {
	var st Stats
	limit := d.NotificationLimit
	if limit <= 0 {
		limit = 50
	}
	ns, err := d.Transport.ListNotifications(ctx, limit)
	if err != nil {
		return st, fmt.Errorf("list notifications: %w", err)
	}
	mentions := unreadMentions(ns)
	st.Mentions = len(mentions)
	if len(mentions) == 0 {
		return st, nil
	}
	slog.Info("dispatch: processing mentions", "count", len(mentions))

	for _, m := range mentions {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		run := newRun(m)
		if err := d.processSafe(ctx, run); err != nil {
			return st, err
		}
		st.Replies += run.replies
		st.Failures += run.failures
		if run.state == Completed {
			st.Completed++
		}
	}
	return st, nil
}

// unreadMentions keeps unread mention notifications, oldest first.
func unreadMentions(ns []model.Notification) []model.Mention {
	out := make([]model.Mention, 0, len(ns))
	for _, n := range ns {
		if n.Reason != "mention" || n.IsRead {
			continue
		}
		out = append(out, model.MentionFromNotification(n))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IndexedAt.Before(out[j].IndexedAt)
	})
	return out
}

func (d *Dispatcher) processSafe(ctx context.Context, run *mentionRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch: panic while processing mention", "uri", run.mention.Post.URI, "panic", r)
			err = d.complete(ctx, run, OutcomePanic)
		}
	}()
	return d.process(ctx, run)
}

func (d *Dispatcher) process(ctx context.Context, run *mentionRun) error {
	m := run.mention
	if d.Handled != nil {
		done, err := d.Handled.IsHandled(ctx, m.Post.URI)
		if err != nil {
			slog.Warn("dispatch: handled lookup failed", "uri", m.Post.URI, "err", err)
		}
		if done {
			slog.Info("dispatch: mention already answered, marking read", "uri", m.Post.URI)
			return d.complete(ctx, run, OutcomeDuplicate)
		}
	}

	thread, err := d.resolveContext(ctx, m)
	if err != nil {
		return err
	}
	run.thread = thread
	if err := run.advance(ContextResolved); err != nil {
		return err
	}

	req := d.buildRequest(ctx, m, thread)
	slog.Info("dispatch: classifying mention", "uri", m.Post.URI, "author", m.Post.AuthorHandle, "command", req.UserCommand, "has_media", req.MediaData != "")
	res, err := d.Classifier.Classify(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		slog.Error("dispatch: classification failed", "uri", m.Post.URI, "err", err)
		return d.complete(ctx, run, OutcomeClassificationFailed)
	}
	run.result = res
	if err := run.advance(Classified); err != nil {
		return err
	}

	handle, ok := d.handlers()[res.Category]
	if !ok {
		slog.Warn("dispatch: no handler for category", "uri", m.Post.URI, "category", res.Category, "label", res.Label)
		return d.complete(ctx, run, OutcomeUnknownCategory)
	}
	if err := run.advance(Responding); err != nil {
		return err
	}
	if err := handle(ctx, run); err != nil {
		return err
	}

	outcome := OutcomeReplied
	switch {
	case run.replies == 0:
		outcome = OutcomeNoReply
	case run.failures > 0:
		outcome = OutcomePartial
	}
	return d.complete(ctx, run, outcome)
}

// resolveContext loads the parent the mention replied to and the mention's
// own post for its images. Missing posts yield an empty context.
func (d *Dispatcher) resolveContext(ctx context.Context, m model.Mention) (model.ThreadContext, error) {
	var tc model.ThreadContext
	if m.Post.Reply != nil && m.Post.Reply.Parent.URI != "" {
		parent, err := d.Transport.GetPost(ctx, m.Post.Reply.Parent.URI)
		switch {
		case errors.Is(err, model.ErrAuth):
			return tc, err
		case err != nil:
			slog.Warn("dispatch: parent lookup failed", "uri", m.Post.URI, "parent", m.Post.Reply.Parent.URI, "err", err)
		case parent != nil:
			tc.RootText = parent.Text
			tc.RootRef = parent.Ref()
			if len(parent.ImageURLs) > 0 {
				tc.ImageURL = parent.ImageURLs[0]
			}
		}
	}
	if tc.ImageURL == "" {
		self, err := d.Transport.GetPost(ctx, m.Post.URI)
		switch {
		case errors.Is(err, model.ErrAuth):
			return tc, err
		case err != nil:
			slog.Warn("dispatch: mention lookup failed", "uri", m.Post.URI, "err", err)
		case self != nil && len(self.ImageURLs) > 0:
			tc.ImageURL = self.ImageURLs[0]
		}
	}
	return tc, nil
}

func (d *Dispatcher) buildRequest(ctx context.Context, m model.Mention, tc model.ThreadContext) middleware.Request {
	cmd := UserCommand(m.Post.Text, d.Transport.Handle())
	req := middleware.Request{UserCommand: cmd, OriginalTweet: tc.RootText}
	if strings.TrimSpace(req.OriginalTweet) == "" {
		req.OriginalTweet = cmd
	}
	if tc.ImageURL != "" && d.Images != nil {
		data, err := d.Images.Fetch(ctx, tc.ImageURL)
		if err != nil {
			slog.Warn("dispatch: media fetch failed, classifying without it", "uri", m.Post.URI, "image_url", tc.ImageURL, "err", err)
		} else {
			req.MediaData = base64.StdEncoding.EncodeToString(data)
		}
	}
	return req
}

// UserCommand returns the text following the last mention of handle. Without
// a handle match it falls back to the text after the last "bsky.social".
func UserCommand(text, handle string) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle != "" {
		// Handles are case-insensitive. Matching on text itself keeps the
		// offsets valid when folding changes a rune's byte width.
		re := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(handle))
		if locs := re.FindAllStringIndex(text, -1); len(locs) > 0 {
			return strings.TrimSpace(text[locs[len(locs)-1][1]:])
		}
	}
	const suffix = "bsky.social"
	if i := strings.LastIndex(text, suffix); i >= 0 {
		return strings.TrimSpace(text[i+len(suffix):])
	}
	return strings.TrimSpace(text)
}

// reply posts one reply. Failures other than authentication are counted and
// swallowed so the remaining chunks still go out.
func (d *Dispatcher) reply(ctx context.Context, run *mentionRun, text string, att *model.Attachment) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	_, err := d.Transport.Reply(ctx, text, run.replyRef(), att)
	if err != nil {
		if errors.Is(err, model.ErrAuth) || errors.Is(err, context.Canceled) {
			return err
		}
		run.failures++
		metrics.ReplyFailures.Inc()
		slog.Warn("dispatch: reply failed", "uri", run.mention.Post.URI, "err", err)
		return nil
	}
	run.replies++
	metrics.RepliesPosted.Inc()
	// Remember the mention as soon as something is posted, so an abort
	// before complete does not lead to the same chunks being posted again.
	if run.replies == 1 && d.Handled != nil {
		if err := d.Handled.MarkHandled(ctx, run.mention.Post.URI, d.handledTTL()); err != nil {
			slog.Warn("dispatch: handled marker failed", "uri", run.mention.Post.URI, "err", err)
		}
	}
	return nil
}

// complete marks the mention read and remembers it as answered. It runs once
// per mention whatever the outcome.
func (d *Dispatcher) complete(ctx context.Context, run *mentionRun, outcome string) error {
	if run.state == Completed {
		return nil
	}
	m := run.mention
	seenAt := m.IndexedAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}
	if err := d.Transport.UpdateSeen(ctx, seenAt); err != nil {
		if errors.Is(err, model.ErrAuth) || errors.Is(err, context.Canceled) {
			return err
		}
		slog.Error("dispatch: mark read failed", "uri", m.Post.URI, "err", err)
	}
	if d.Handled != nil && outcome != OutcomeDuplicate {
		if err := d.Handled.MarkHandled(ctx, m.Post.URI, d.handledTTL()); err != nil {
			slog.Warn("dispatch: handled marker failed", "uri", m.Post.URI, "err", err)
		}
	}
	if err := run.advance(Completed); err != nil {
		return err
	}
	metrics.MentionsProcessed.WithLabelValues(outcome).Inc()
	slog.Info("dispatch: mention completed", "uri", m.Post.URI, "outcome", outcome, "category", run.result.Category, "replies", run.replies, "failures", run.failures)
	return nil
}

func (d *Dispatcher) maxLength() int {
	if d.MaxLength > 0 {
		return d.MaxLength
	}
	return textsplit.DefaultMaxLength
}

func (d *Dispatcher) handledTTL() time.Duration {
	if d.HandledTTL > 0 {
		return d.HandledTTL
	}
	return 7 * 24 * time.Hour
}
