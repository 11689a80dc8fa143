package model

import (
	"encoding/json"
	"time"
)

// StrongRef points at a specific version of a record (AT-URI plus content id).
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// IsZero reports whether the reference is unset.
func (r StrongRef) IsZero() bool {
	return r.URI == "" && r.CID == ""
}

// ReplyRef is the reply block of a post record.
type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

// Post is a single post as fetched from the network. Hashtags are derived once
// by the trend engine and never mutated afterwards.
type Post struct {
	URI          string
	CID          string
	AuthorDID    string
	AuthorHandle string
	Text         string
	CreatedAt    time.Time
	LikeCount    int
	Hashtags     []string
	Reply        *ReplyRef // nil unless the post is a reply
	ImageURLs    []string  // thumbnails of embedded images, if any
}

// Ref returns the strong reference to this post.
func (p Post) Ref() StrongRef {
	return StrongRef{URI: p.URI, CID: p.CID}
}

// Notification is one entry of the account's notification feed.
type Notification struct {
	URI       string
	CID       string
	Reason    string // "mention", "reply", "like", ...
	AuthorDID string
	Handle    string
	Text      string
	Reply     *ReplyRef
	IsRead    bool
	IndexedAt time.Time
}

// Mention is a notification that referenced the monitored account, together
// with the post that carried it. IsRead flips to true exactly once, after the
// reply attempt for the mention has resolved.
type Mention struct {
	NotificationID string
	Post           Post
	ThreadRootRef  *StrongRef
	IsRead         bool
	IndexedAt      time.Time
}

// MentionFromNotification builds a Mention from a "mention" notification.
func MentionFromNotification(n Notification) Mention {
	m := Mention{
		NotificationID: n.URI,
		IsRead:         n.IsRead,
		IndexedAt:      n.IndexedAt,
		Post: Post{
			URI:          n.URI,
			CID:          n.CID,
			AuthorDID:    n.AuthorDID,
			AuthorHandle: n.Handle,
			Text:         n.Text,
			Reply:        n.Reply,
		},
	}
	if n.Reply != nil {
		root := n.Reply.Root
		m.ThreadRootRef = &root
	}
	return m
}

// ThreadContext is the conversation a mention was posted into. The zero value
// means the parent was absent, deleted or unreachable.
type ThreadContext struct {
	RootText string
	RootRef  StrongRef
	ImageURL string
}

// BlobRef is the opaque blob object returned by an upload. It is embedded back
// into records verbatim.
type BlobRef struct {
	Raw      json.RawMessage
	MimeType string
	Size     int
}

// Attachment is an uploaded image ready to be embedded in a reply.
type Attachment struct {
	Blob   BlobRef
	Alt    string
	Width  int
	Height int
}
