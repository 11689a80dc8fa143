// Package digest renders the latest trend reports as a markdown document.
package digest

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"sidehug/internal/model"
)

type Post struct {
	Text  string
	Likes int
	URL   string
}

type Topic struct {
	Name         string
	TotalPosts   int
	AverageLikes float64
	Hashtags     []model.HashtagStat
	TopPosts     []Post
}

type Data struct {
	Title    string
	Datetime string
	Preface  string
	Topics   []Topic
}

//go:embed digest.tmpl
var digestTpl string

var compiled = template.Must(template.New("digest").Parse(digestTpl))

func Render(d Data) (string, error) {
	var buf bytes.Buffer
	if err := compiled.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FromReports builds template data from reports, in the given order. Post
// text is flattened to one line and cut to maxText runes.
func FromReports(title, preface string, reports []model.TrendReport, now time.Time, maxText int) Data {
	d := Data{
		Title:    ExpandVars(title, now),
		Datetime: now.UTC().Format(time.RFC3339),
		Preface:  ExpandVars(preface, now),
	}
	for _, r := range reports {
		t := Topic{
			Name:         r.Topic,
			TotalPosts:   r.PostMetrics.TotalPosts,
			AverageLikes: r.PostMetrics.AverageLikes,
			Hashtags:     r.TopHashtags,
		}
		for _, p := range r.PostMetrics.TopPosts {
			t.TopPosts = append(t.TopPosts, Post{
				Text:  oneLine(p.Text, maxText),
				Likes: p.Likes,
				URL:   WebURL(p.URI),
			})
		}
		d.Topics = append(d.Topics, t)
	}
	return d
}

// WebURL turns at://<did>/app.bsky.feed.post/<rkey> into the bsky.app link.
// Other URIs yield "".
func WebURL(uri string) string {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "app.bsky.feed.post" || parts[0] == "" || parts[2] == "" {
		return ""
	}
	return "https://bsky.app/profile/" + parts[0] + "/post/" + parts[2]
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "/")
	if max > 0 {
		r := []rune(s)
		if len(r) > max {
			s = strings.TrimSpace(string(r[:max])) + "…"
		}
	}
	return s
}
