package bsky

import (
	"context"
	"time"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/xrpc"

	"sidehug/internal/model"
)

// SearchPosts runs app.bsky.feed.searchPosts. limit is clamped to 1..100.
func (c *Client) SearchPosts(ctx context.Context, query string, limit int) ([]model.Post, error) {
	const nsid = "app.bsky.feed.searchPosts"
	var out appbsky.FeedSearchPosts_Output
	params := map[string]interface{}{
		"q":     query,
		"limit": clamp(limit, 1, 100),
	}
	err := c.call(ctx, nsid, authAccess, func(xc *xrpc.Client) error {
		return xc.Do(ctx, xrpc.Query, "", nsid, params, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(out.Posts))
	for _, p := range out.Posts {
		if p != nil {
			posts = append(posts, postFromView(p))
		}
	}
	return posts, nil
}

// ListNotifications returns the most recent notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	const nsid = "app.bsky.notification.listNotifications"
	var out appbsky.NotificationListNotifications_Output
	params := map[string]interface{}{"limit": clamp(limit, 1, 100)}
	err := c.call(ctx, nsid, authAccess, func(xc *xrpc.Client) error {
		return xc.Do(ctx, xrpc.Query, "", nsid, params, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	ns := make([]model.Notification, 0, len(out.Notifications))
	for _, n := range out.Notifications {
		if n != nil {
			ns = append(ns, notificationFromView(n))
		}
	}
	return ns, nil
}

// GetPost fetches a single post through app.bsky.feed.getPostThread with
// depth 0. A deleted, blocked or missing post yields (nil, nil).
func (c *Client) GetPost(ctx context.Context, uri string) (*model.Post, error) {
	var out *appbsky.FeedGetPostThread_Output
	err := c.call(ctx, "app.bsky.feed.getPostThread", authAccess, func(xc *xrpc.Client) (err error) {
		out, err = appbsky.FeedGetPostThread(ctx, xc, 0, 0, uri)
		return err
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if out == nil || out.Thread == nil || out.Thread.FeedDefs_ThreadViewPost == nil {
		return nil, nil
	}
	view := out.Thread.FeedDefs_ThreadViewPost.Post
	if view == nil {
		return nil, nil
	}
	p := postFromView(view)
	return &p, nil
}

// UpdateSeen marks every notification indexed at or before seenAt as read.
func (c *Client) UpdateSeen(ctx context.Context, seenAt time.Time) error {
	return c.call(ctx, "app.bsky.notification.updateSeen", authAccess, func(xc *xrpc.Client) error {
		return appbsky.NotificationUpdateSeen(ctx, xc, &appbsky.NotificationUpdateSeen_Input{
			SeenAt: seenAt.UTC().Format(time.RFC3339Nano),
		})
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
