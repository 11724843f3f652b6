package ui

import (
	"strings"
	"testing"
)

func TestRenderProgressRow_SegmentsPerPost(t *testing.T) {
	row := renderProgressRow([]float64{100, 50, 0}, 32)

	segments := strings.Split(row, " ")
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}

	if strings.Contains(segments[0], "─") {
		t.Fatalf("expected played segment to be fully filled, got %q", segments[0])
	}
	if !strings.Contains(segments[1], "━") || !strings.Contains(segments[1], "─") {
		t.Fatalf("expected current segment to be partially filled, got %q", segments[1])
	}
	if strings.Contains(segments[2], "━") {
		t.Fatalf("expected upcoming segment to be empty, got %q", segments[2])
	}
}

func TestRenderProgressRow_Degenerate(t *testing.T) {
	if row := renderProgressRow(nil, 40); row != "" {
		t.Fatalf("expected empty row for no posts, got %q", row)
	}
	if row := renderProgressRow([]float64{50}, 0); row != "" {
		t.Fatalf("expected empty row for zero width, got %q", row)
	}

	// More posts than columns still yields one rune per post.
	row := renderProgressRow([]float64{0, 0, 0, 0}, 2)
	segments := strings.Split(row, " ")
	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}
	for _, seg := range segments {
		if len([]rune(seg)) != 1 {
			t.Fatalf("expected single-rune segments, got %q", seg)
		}
	}
}
