package chunking

import (
	"strings"
	"testing"
)

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(100, 20)
	if got := s.Split("   \n\n  "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	got := s.Split("hello world")
	if len(got) != 1 || got[0] != "hello world" {
		t.Fatalf("expected single chunk, got %v", got)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("a", 40)
	text := para + "\n\n" + para + "\n\n" + para
	s := NewSplitter(90, 0)

	got := s.Split(text)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, chunk := range got {
		if len([]rune(chunk)) > 90 {
			t.Fatalf("chunk %d exceeds size limit: %d runes", i, len([]rune(chunk)))
		}
	}
}

func TestSplitOverlapCarriesTail(t *testing.T) {
	words := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		words = append(words, "word")
	}
	text := strings.Join(words, " ")
	s := NewSplitter(50, 15)

	got := s.Split(text)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		prevTail := got[i-1][len(got[i-1])-4:]
		if !strings.HasPrefix(got[i], prevTail) {
			t.Fatalf("chunk %d does not overlap with previous: %q vs %q", i, got[i], got[i-1])
		}
	}
}

func TestSplitCharacterFallback(t *testing.T) {
	text := strings.Repeat("x", 250)
	s := NewSplitter(100, 10)

	got := s.Split(text)
	if len(got) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(got))
	}
	for i, chunk := range got {
		if len([]rune(chunk)) > 100 {
			t.Fatalf("chunk %d exceeds size limit", i)
		}
	}
}

func TestNewSplitterClampsBadConfig(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != 1024 || s.Overlap != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	s = NewSplitter(100, 200)
	if s.Overlap >= s.ChunkSize {
		t.Fatalf("overlap not clamped: %+v", s)
	}
}
