package embedding

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/hyperjump/kugiri/internal/vector"
)

func newLexical(t *testing.T, dims int) *LexicalEmbedder {
	t.Helper()
	e, err := NewLexicalEmbedder(dims)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestLexicalEmbedder_Terms(t *testing.T) {
	e := newLexical(t, 0)
	got := e.Terms("The rivers are flooding")
	want := []string{"river", "flood"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if e.Dimensions() != 384 {
		t.Errorf("default dimensions = %d", e.Dimensions())
	}
}

func TestLexicalEmbedder_Similarity(t *testing.T) {
	e := newLexical(t, 384)
	ctx := context.Background()
	texts := []string{
		"The river floods the valley every spring.",
		"Every spring the river floods the valley again.",
		"Quarterly revenue grew after the product launch.",
	}
	vs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != len(texts) {
		t.Fatalf("got %d vectors", len(vs))
	}
	for i, v := range vs {
		if n := vector.L2Norm(v); math.Abs(n-1) > 1e-5 {
			t.Errorf("vector %d norm = %f, want 1", i, n)
		}
	}
	same := vector.Cosine(vs[0], vs[1])
	other := vector.Cosine(vs[0], vs[2])
	if same < 0.8 {
		t.Errorf("restated sentences similarity = %f, want >= 0.8", same)
	}
	if other > 0.3 {
		t.Errorf("unrelated sentences similarity = %f, want <= 0.3", other)
	}

	again, err := e.Embed(ctx, texts[0])
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(again, vs[0]) {
		t.Error("same text should embed identically")
	}
}

func TestLexicalEmbedder_StopWordsOnly(t *testing.T) {
	e := newLexical(t, 16)
	v, err := e.Embed(context.Background(), "and the of")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 16 || vector.L2Norm(v) != 0 {
		t.Errorf("expected a zero vector of 16 dims, got %v", v)
	}
}

func TestLexicalEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newLexical(t, 8).Embed(ctx, "text"); err == nil {
		t.Error("expected context error")
	}
}
