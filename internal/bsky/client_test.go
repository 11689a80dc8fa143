package bsky

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidehug/internal/model"
)

// testBlobCID is a valid raw-codec CID; blob refs are parsed on decode.
const testBlobCID = "bafkreibme22gw2h7y2h7tg2fhqotaqjucnbc24deqo72b6mkl2egezxhvy"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{Host: srv.URL, Identifier: "bot.bsky.social", Password: "pw", Timeout: 2 * time.Second})
}

func sessionHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/xrpc/com.atproto.server.createSession" {
			writeJSON(w, 200, Session{DID: "did:plc:bot", Handle: "bot.bsky.social", AccessJwt: "access", RefreshJwt: "refresh"})
			return
		}
		next(w, r)
	}
}

func TestLoginAndSearch(t *testing.T) {
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/app.bsky.feed.searchPosts", r.URL.Path)
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		assert.Equal(t, "bitcoin", r.URL.Query().Get("q"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		writeJSON(w, 200, map[string]any{"posts": []map[string]any{{
			"uri":       "at://did:plc:a/app.bsky.feed.post/1",
			"cid":       "cid1",
			"author":    map[string]string{"did": "did:plc:a", "handle": "a.bsky.social"},
			"indexedAt": "2024-05-01T10:00:01.000Z",
			"record":    map[string]any{"$type": "app.bsky.feed.post", "text": "hello #btc", "createdAt": "2024-05-01T10:00:00.000Z"},
			"embed":     map[string]any{"$type": "app.bsky.embed.images#view", "images": []map[string]string{{"thumb": "https://cdn/t.jpg"}}},
			"likeCount": 7,
		}}})
	}))

	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, "did:plc:bot", c.Session().DID)

	posts, err := c.SearchPosts(context.Background(), "bitcoin", 500)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	p := posts[0]
	assert.Equal(t, "hello #btc", p.Text)
	assert.Equal(t, 7, p.LikeCount)
	assert.Equal(t, "a.bsky.social", p.AuthorHandle)
	assert.Equal(t, []string{"https://cdn/t.jpg"}, p.ImageURLs)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt)
}

func TestCallsBeforeLoginAreAuthErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})
	_, err := c.ListNotifications(context.Background(), 10)
	assert.ErrorIs(t, err, ErrAuth)
}

func TestExpiredTokenIsAuthError(t *testing.T) {
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]string{"error": "ExpiredToken", "message": "Token has expired"})
	}))
	require.NoError(t, c.Login(context.Background()))

	_, err := c.ListNotifications(context.Background(), 10)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "ExpiredToken", authErr.Code)
	assert.ErrorIs(t, err, model.ErrAuth)
}

func TestOtherErrorsAreNotAuth(t *testing.T) {
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 502, map[string]string{"error": "UpstreamFailure"})
	}))
	require.NoError(t, c.Login(context.Background()))

	_, err := c.SearchPosts(context.Background(), "x", 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuth))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 502, apiErr.Status)
}

func TestLoginRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]string{"error": "AuthenticationRequired", "message": "Invalid identifier or password"})
	})
	assert.ErrorIs(t, c.Login(context.Background()), ErrAuth)
	assert.Nil(t, c.Session())
}

func TestReauthenticateFallsBackToLogin(t *testing.T) {
	var logins int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			n := atomic.AddInt32(&logins, 1)
			writeJSON(w, 200, Session{DID: "did:plc:bot", AccessJwt: "access" + string(rune('0'+n)), RefreshJwt: "refresh"})
		case "/xrpc/com.atproto.server.refreshSession":
			assert.Equal(t, "Bearer refresh", r.Header.Get("Authorization"))
			writeJSON(w, 400, map[string]string{"error": "ExpiredToken"})
		}
	})
	require.NoError(t, c.Login(context.Background()))
	require.NoError(t, c.Reauthenticate(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
	assert.Equal(t, "access2", c.Session().AccessJwt)
}

func TestReauthenticateUsesRefresh(t *testing.T) {
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/xrpc/com.atproto.server.refreshSession", r.URL.Path)
		writeJSON(w, 200, Session{DID: "did:plc:bot", AccessJwt: "fresh", RefreshJwt: "refresh2"})
	}))
	require.NoError(t, c.Login(context.Background()))
	require.NoError(t, c.Reauthenticate(context.Background()))
	assert.Equal(t, "fresh", c.Session().AccessJwt)
}

func TestGetPostNotFound(t *testing.T) {
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "deleted") {
			writeJSON(w, 400, map[string]string{"error": "NotFound", "message": "Post not found"})
			return
		}
		writeJSON(w, 200, map[string]any{"thread": map[string]any{
			"$type":    "app.bsky.feed.defs#notFoundPost",
			"notFound": true,
		}})
	}))
	require.NoError(t, c.Login(context.Background()))

	p, err := c.GetPost(context.Background(), "at://deleted")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = c.GetPost(context.Background(), "at://gone")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestListNotificationsDecodesRecord(t *testing.T) {
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"notifications": []map[string]any{{
			"uri":    "at://n/1",
			"cid":    "c1",
			"author": map[string]string{"did": "did:plc:u", "handle": "u.bsky.social"},
			"reason": "mention",
			"record": map[string]any{
				"$type": "app.bsky.feed.post",
				"text":  "@bot.bsky.social fact check this",
				"reply": map[string]any{"root": map[string]string{"uri": "at://root", "cid": "rc"}, "parent": map[string]string{"uri": "at://parent", "cid": "pc"}},
			},
			"isRead":    false,
			"indexedAt": "2024-05-01T10:00:00.5Z",
		}}})
	}))
	require.NoError(t, c.Login(context.Background()))

	ns, err := c.ListNotifications(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	n := ns[0]
	assert.Equal(t, "mention", n.Reason)
	assert.Equal(t, "@bot.bsky.social fact check this", n.Text)
	require.NotNil(t, n.Reply)
	assert.Equal(t, "at://parent", n.Reply.Parent.URI)
	assert.Equal(t, 500*time.Millisecond, time.Duration(n.IndexedAt.Nanosecond()))
}

func TestUploadBlobAndReplyWithImage(t *testing.T) {
	var created map[string]any
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/xrpc/com.atproto.repo.uploadBlob":
			assert.Equal(t, "image/webp", r.Header.Get("Content-Type"))
			b, _ := io.ReadAll(r.Body)
			assert.Equal(t, []byte("imgbytes"), b)
			writeJSON(w, 200, map[string]any{"blob": map[string]any{
				"$type": "blob", "ref": map[string]string{"$link": testBlobCID}, "mimeType": "image/webp", "size": 8,
			}})
		case "/xrpc/com.atproto.repo.createRecord":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			writeJSON(w, 200, model.StrongRef{URI: "at://did:plc:bot/app.bsky.feed.post/new", CID: "newcid"})
		}
	}))
	require.NoError(t, c.Login(context.Background()))

	blob, err := c.UploadBlob(context.Background(), []byte("imgbytes"), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, 8, blob.Size)

	parent := model.StrongRef{URI: "at://m", CID: "mc"}
	ref, err := c.Reply(context.Background(), "see #chart", model.ReplyRef{Root: parent, Parent: parent},
		&model.Attachment{Blob: blob, Alt: "see #chart", Width: 10, Height: 5})
	require.NoError(t, err)
	assert.Equal(t, "newcid", ref.CID)

	assert.Equal(t, "did:plc:bot", created["repo"])
	assert.Equal(t, "app.bsky.feed.post", created["collection"])
	rec := created["record"].(map[string]any)
	assert.Equal(t, "app.bsky.feed.post", rec["$type"])
	assert.Equal(t, "see #chart", rec["text"])
	embed := rec["embed"].(map[string]any)
	assert.Equal(t, "app.bsky.embed.images", embed["$type"])
	img := embed["images"].([]any)[0].(map[string]any)
	assert.Equal(t, testBlobCID, img["image"].(map[string]any)["ref"].(map[string]any)["$link"])
	require.Len(t, rec["facets"], 1)
	feature := rec["facets"].([]any)[0].(map[string]any)["features"].([]any)[0].(map[string]any)
	assert.Equal(t, "app.bsky.richtext.facet#tag", feature["$type"])
	assert.Equal(t, "chart", feature["tag"])
	reply := rec["reply"].(map[string]any)
	assert.Equal(t, "at://m", reply["parent"].(map[string]any)["uri"])
}

func TestLimiterSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"posts": []any{}})
	}))
	defer srv.Close()
	c := NewClient(Config{Host: srv.URL, Identifier: "bot", Password: "pw", MinInterval: 40 * time.Millisecond})
	require.NoError(t, c.Login(context.Background()))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.SearchPosts(context.Background(), "x", 1)
		require.NoError(t, err)
	}
	// login consumed the burst token; three more calls need three intervals.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestCanceledCallKeepsCause(t *testing.T) {
	c := newTestClient(t, sessionHandler(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"posts": []any{}})
	}))
	require.NoError(t, c.Login(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SearchPosts(ctx, "x", 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrAuth))
}
