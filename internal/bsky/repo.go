package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"sidehug/internal/model"
)

// UploadBlob uploads raw media and returns the blob object to embed. The
// content type is sent as given so the PDS records the real mime type.
func (c *Client) UploadBlob(ctx context.Context, data []byte, mimeType string) (model.BlobRef, error) {
	const nsid = "com.atproto.repo.uploadBlob"
	var out comatproto.RepoUploadBlob_Output
	err := c.call(ctx, nsid, authAccess, func(xc *xrpc.Client) error {
		return xc.Do(ctx, xrpc.Procedure, mimeType, nsid, nil, bytes.NewReader(data), &out)
	})
	if err != nil {
		return model.BlobRef{}, err
	}
	if out.Blob == nil {
		return model.BlobRef{}, errors.New("bsky: uploadBlob returned no blob")
	}
	raw, err := json.Marshal(out.Blob)
	if err != nil {
		return model.BlobRef{}, fmt.Errorf("bsky: encode blob ref: %w", err)
	}
	return model.BlobRef{Raw: raw, MimeType: out.Blob.MimeType, Size: int(out.Blob.Size)}, nil
}

// PostInput describes a post to create.
type PostInput struct {
	Text       string
	Reply      *model.ReplyRef
	Attachment *model.Attachment
	Langs      []string
}

// CreatePost writes an app.bsky.feed.post record to the logged-in repo. Links
// and hashtags in the text are turned into facets.
func (c *Client) CreatePost(ctx context.Context, in PostInput) (model.StrongRef, error) {
	s := c.Session()
	if s == nil {
		return model.StrongRef{}, &AuthError{Code: "AuthMissing", Message: "not logged in"}
	}
	post := &appbsky.FeedPost{
		LexiconTypeID: "app.bsky.feed.post",
		Text:          in.Text,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		Facets:        DetectFacets(in.Text),
		Langs:         in.Langs,
	}
	if r := in.Reply; r != nil {
		post.Reply = &appbsky.FeedPost_ReplyRef{
			Root:   &comatproto.RepoStrongRef{Uri: r.Root.URI, Cid: r.Root.CID},
			Parent: &comatproto.RepoStrongRef{Uri: r.Parent.URI, Cid: r.Parent.CID},
		}
	}
	if a := in.Attachment; a != nil {
		var blob lexutil.LexBlob
		if err := json.Unmarshal(a.Blob.Raw, &blob); err != nil {
			return model.StrongRef{}, fmt.Errorf("bsky: decode blob ref: %w", err)
		}
		post.Embed = &appbsky.FeedPost_Embed{EmbedImages: &appbsky.EmbedImages{
			LexiconTypeID: "app.bsky.embed.images",
			Images:        []*appbsky.EmbedImages_Image{{Alt: a.Alt, Image: &blob}},
		}}
	}

	var out *comatproto.RepoCreateRecord_Output
	err := c.call(ctx, "com.atproto.repo.createRecord", authAccess, func(xc *xrpc.Client) (err error) {
		out, err = comatproto.RepoCreateRecord(ctx, xc, &comatproto.RepoCreateRecord_Input{
			Repo:       s.DID,
			Collection: "app.bsky.feed.post",
			Record:     &lexutil.LexiconTypeDecoder{Val: post},
		})
		return err
	})
	if err != nil {
		return model.StrongRef{}, fmt.Errorf("create post: %w", err)
	}
	return model.StrongRef{URI: out.Uri, CID: out.Cid}, nil
}

// Reply posts text (and optional attachment) as a reply.
func (c *Client) Reply(ctx context.Context, text string, reply model.ReplyRef, att *model.Attachment) (model.StrongRef, error) {
	return c.CreatePost(ctx, PostInput{Text: text, Reply: &reply, Attachment: att})
}
