package bsky

import (
	"strings"
	"time"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"

	"sidehug/internal/model"
)

func postFromView(v *appbsky.FeedDefs_PostView) model.Post {
	p := model.Post{
		URI:       v.Uri,
		CID:       v.Cid,
		ImageURLs: embedImageURLs(v.Embed),
	}
	if v.Author != nil {
		p.AuthorDID = v.Author.Did
		p.AuthorHandle = v.Author.Handle
	}
	if v.LikeCount != nil {
		p.LikeCount = int(*v.LikeCount)
	}
	if rec := feedPost(v.Record); rec != nil {
		p.Text = rec.Text
		p.CreatedAt = parseTime(rec.CreatedAt)
		p.Reply = replyRef(rec.Reply)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = parseTime(v.IndexedAt)
	}
	return p
}

func notificationFromView(v *appbsky.NotificationListNotifications_Notification) model.Notification {
	n := model.Notification{
		URI:       v.Uri,
		CID:       v.Cid,
		Reason:    v.Reason,
		IsRead:    v.IsRead,
		IndexedAt: parseTime(v.IndexedAt),
	}
	if v.Author != nil {
		n.AuthorDID = v.Author.Did
		n.Handle = v.Author.Handle
	}
	if rec := feedPost(v.Record); rec != nil {
		n.Text = rec.Text
		n.Reply = replyRef(rec.Reply)
	}
	return n
}

// feedPost returns the decoded post record, or nil for other record types.
func feedPost(rec *lexutil.LexiconTypeDecoder) *appbsky.FeedPost {
	if rec == nil {
		return nil
	}
	fp, _ := rec.Val.(*appbsky.FeedPost)
	return fp
}

func replyRef(r *appbsky.FeedPost_ReplyRef) *model.ReplyRef {
	if r == nil {
		return nil
	}
	out := &model.ReplyRef{}
	if r.Root != nil {
		out.Root = model.StrongRef{URI: r.Root.Uri, CID: r.Root.Cid}
	}
	if r.Parent != nil {
		out.Parent = model.StrongRef{URI: r.Parent.Uri, CID: r.Parent.Cid}
	}
	return out
}

// embedImageURLs covers image embeds and the media half of record-with-media
// embeds. Thumbnails are preferred.
func embedImageURLs(e *appbsky.FeedDefs_PostView_Embed) []string {
	if e == nil {
		return nil
	}
	imgs := e.EmbedImages_View
	if imgs == nil && e.EmbedRecordWithMedia_View != nil && e.EmbedRecordWithMedia_View.Media != nil {
		imgs = e.EmbedRecordWithMedia_View.Media.EmbedImages_View
	}
	if imgs == nil {
		return nil
	}
	out := make([]string, 0, len(imgs.Images))
	for _, img := range imgs.Images {
		if img == nil {
			continue
		}
		u := img.Thumb
		if u == "" {
			u = img.Fullsize
		}
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
