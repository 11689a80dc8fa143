package bsky

import (
	"regexp"
	"sort"
	"strings"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
)

var (
	linkRe = regexp.MustCompile(`https?://[^\s]+`)
	tagRe  = regexp.MustCompile(`(?:^|\s)(#[\p{L}\p{N}_]+)`)
)

type span struct{ start, end int }

// DetectFacets finds links and hashtags in text. Offsets are UTF-8 bytes.
// Mentions are left as plain text since they would need a handle to DID
// lookup.
func DetectFacets(text string) []*appbsky.RichtextFacet {
	var facets []*appbsky.RichtextFacet
	var links []span
	for _, loc := range linkRe.FindAllStringIndex(text, -1) {
		end := loc[0] + len(strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?)\"'"))
		sp := span{loc[0], end}
		links = append(links, sp)
		facets = append(facets, newFacet(sp, &appbsky.RichtextFacet_Features_Elem{
			RichtextFacet_Link: &appbsky.RichtextFacet_Link{
				LexiconTypeID: "app.bsky.richtext.facet#link",
				Uri:           text[sp.start:sp.end],
			},
		}))
	}
	for _, m := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		sp := span{m[2], m[3]}
		if overlaps(sp, links) {
			continue
		}
		facets = append(facets, newFacet(sp, &appbsky.RichtextFacet_Features_Elem{
			RichtextFacet_Tag: &appbsky.RichtextFacet_Tag{
				LexiconTypeID: "app.bsky.richtext.facet#tag",
				Tag:           text[sp.start+1 : sp.end],
			},
		}))
	}
	sort.Slice(facets, func(i, j int) bool {
		return facets[i].Index.ByteStart < facets[j].Index.ByteStart
	})
	return facets
}

func newFacet(sp span, feature *appbsky.RichtextFacet_Features_Elem) *appbsky.RichtextFacet {
	return &appbsky.RichtextFacet{
		Index:    &appbsky.RichtextFacet_ByteSlice{ByteStart: int64(sp.start), ByteEnd: int64(sp.end)},
		Features: []*appbsky.RichtextFacet_Features_Elem{feature},
	}
}

func overlaps(s span, spans []span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}
