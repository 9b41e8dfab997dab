package nlp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProseSegmenter_Split(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"blank only", " \n\n  ", nil},
		{"abbreviation", "Dr. Smith arrived. He sat down.", []string{"Dr. Smith arrived.", "He sat down."}},
		{"decimal", "Pi is 3.14 today. Next one", []string{"Pi is 3.14 today.", "Next one"}},
		{"exclamation and question", "It works! Does it scale? Yes.", []string{"It works!", "Does it scale?", "Yes."}},
		{"paragraphs", "First para\n\nsecond para", []string{"First para", "second para"}},
		{"collapse whitespace", "One   two\nthree.  Four", []string{"One two three.", "Four"}},
	}
	s := NewProseSegmenter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Split(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProseSegmenter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProseSegmenter().Split(ctx, "A. B."); err == nil {
		t.Error("expected context error")
	}
}

func TestBleveTokenCounter(t *testing.T) {
	c := NewBleveTokenCounter(0)
	if got := c.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d", got)
	}
	if got := c.Count("hello world"); got != 3 {
		t.Errorf("Count(hello world) = %d, want 3", got)
	}
	short := c.Count("one two")
	long := c.Count("one two three four")
	if long < short {
		t.Errorf("count not monotonic: %d < %d", long, short)
	}
	if got := NewBleveTokenCounter(1).Count("one, two; three!"); got != 3 {
		t.Errorf("punctuation should not count, got %d", got)
	}
}
