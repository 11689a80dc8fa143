package textsplit

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	in := "Hello world. How are you?"
	got := Split(in, DefaultMaxLength)
	if len(got) != 1 || got[0] != in {
		t.Fatalf("expected single chunk %q, got %q", in, got)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t "} {
		if got := Split(in, 10); len(got) != 0 {
			t.Errorf("Split(%q) = %q, want no chunks", in, got)
		}
	}
}

func TestSplitPacksSentencesAndReverses(t *testing.T) {
	s1 := "One two three four five."
	s2 := "Six seven eight nine ten."
	s3 := "Eleven twelve."
	got := Split(s1+" "+s2+" "+s3, 30)
	want := []string{s3, s2, s1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split mismatch\nwant: %q\n got: %q", want, got)
	}
	if n := Narrative(got); !reflect.DeepEqual(n, []string{s1, s2, s3}) {
		t.Errorf("Narrative mismatch: %q", n)
	}
	// Narrative must not reorder its input in place.
	if got[0] != s3 {
		t.Errorf("Narrative mutated its argument: %q", got)
	}
}

func TestSplitGreedyPacking(t *testing.T) {
	got := Split("Hi. Yo. Hey there friend.", 8)
	want := []string{"Hey there friend."[:8], "Hi. Yo."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestSplitTruncatesOversizeSentence(t *testing.T) {
	got := Split("abcdefghij. xy.", 5)
	want := []string{"xy.", "abcde"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	got := Split("Привет мир. Как дела?", 12)
	want := []string{"Как дела?", "Привет мир."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestSplitChunksNeverExceedLimit(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 200),
		strings.Repeat("Short one. ", 80),
		strings.Repeat("A much longer sentence that keeps going for a while! ", 20) + "End?",
		"NoTerminatorAtAll" + strings.Repeat("x", 500),
	}
	for _, max := range []int{10, 50, 299} {
		for _, in := range inputs {
			for _, c := range Split(in, max) {
				if n := utf8.RuneCountInString(c); n > max {
					t.Fatalf("chunk of %d runes exceeds %d: %q", n, max, c)
				}
			}
		}
	}
}

func TestSplitReconstructsWithoutTruncation(t *testing.T) {
	in := strings.TrimSpace(strings.Repeat("The quick brown fox jumps. Over the lazy dog! Really? ", 15))
	chunks := Split(in, 60)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if got := strings.Join(Narrative(chunks), " "); got != in {
		t.Errorf("reconstruction mismatch\nwant: %q\n got: %q", in, got)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("  First one. Second!  Third?\nv1.2 stays whole ")
	want := []string{"First one.", "Second!", "Third?", "v1.2 stays whole"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}
