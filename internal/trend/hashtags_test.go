package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidehug/internal/model"
)

func TestExtractHashtagsCaseFoldAndDedup(t *testing.T) {
	got := ExtractHashtags("Great day! #AI #ai #Crypto")
	assert.Equal(t, []string{"#ai", "#crypto"}, got)
}

func TestExtractHashtagsUnicodeAndNone(t *testing.T) {
	assert.Equal(t, []string{"#café", "#web3"}, ExtractHashtags("#Café time #web3, #"))
	assert.Empty(t, ExtractHashtags("no tags here"))
}

func TestTopNOrdersByCountThenFirstSeen(t *testing.T) {
	a := NewAggregator()
	a.AddPost("tech", model.Post{Hashtags: []string{"#go", "#rust"}})
	a.AddPost("tech", model.Post{Hashtags: []string{"#zig", "#rust"}})
	a.AddPost("tech", model.Post{Hashtags: []string{"#go", "#zig"}})
	a.AddPost("tech", model.Post{Hashtags: []string{"#ai"}})

	got := a.TopN("tech", 3)
	require.Len(t, got, 3)
	assert.Equal(t, model.HashtagStat{Hashtag: "#go", Count: 2, Percentage: 50}, got[0])
	assert.Equal(t, "#rust", got[1].Hashtag)
	assert.Equal(t, "#zig", got[2].Hashtag)
}

func TestTopNPercentageRounding(t *testing.T) {
	a := NewAggregator()
	a.AddPost("t", model.Post{Hashtags: []string{"#x"}})
	a.AddPost("t", model.Post{})
	a.AddPost("t", model.Post{})

	got := a.TopN("t", 5)
	require.Len(t, got, 1)
	assert.Equal(t, 33.33, got[0].Percentage)
}

func TestTopNZeroPostsYieldsZeroPercent(t *testing.T) {
	a := NewAggregator()
	a.Accumulate("empty", []string{"#A", "#b"})

	got := a.TopN("empty", 10)
	require.Len(t, got, 2)
	for _, h := range got {
		assert.Equal(t, 0.0, h.Percentage)
	}
	assert.Equal(t, "#a", got[0].Hashtag)
	assert.Empty(t, a.TopN("unknown", 10))
}

func TestMetrics(t *testing.T) {
	a := NewAggregator()
	for i, likes := range []int{3, 10, 0, 10, 7} {
		a.AddPost("t", model.Post{URI: string(rune('a' + i)), LikeCount: likes})
	}

	m := a.Metrics("t", 3)
	assert.Equal(t, 5, m.TotalPosts)
	assert.Equal(t, 6.0, m.AverageLikes)
	require.Len(t, m.TopPosts, 3)
	assert.Equal(t, []string{"b", "d", "e"}, []string{m.TopPosts[0].URI, m.TopPosts[1].URI, m.TopPosts[2].URI})

	empty := a.Metrics("none", 10)
	assert.Equal(t, 0, empty.TotalPosts)
	assert.Equal(t, 0.0, empty.AverageLikes)
	assert.NotNil(t, empty.TopPosts)
}

func TestReset(t *testing.T) {
	a := NewAggregator()
	a.AddPost("t", model.Post{Hashtags: []string{"#x"}})
	a.Reset()
	assert.Equal(t, 0, a.TotalPosts("t"))
	assert.Empty(t, a.TopN("t", 5))
}
