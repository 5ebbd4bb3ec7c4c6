package segment

import (
	"reflect"
	"strings"
	"testing"
)

func TestSegment_Deterministic(t *testing.T) {
	doc := "---\ntitle: x\n---\n# One\n\nalpha beta\n\n## Two {#anchor}\n\ngamma <img src=\"pic/a.png\"> delta\n"
	a := Segment(doc, "doc.md", Options{})
	b := Segment(doc, "doc.md", Options{})
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical input produced different chunk lists")
	}
}

func TestSegment_FrontMatterStripped(t *testing.T) {
	doc := "---\ntitle: Guide\ndate: 2024-01-01\n---\n# Intro\n\nbody text\n"
	chunks := Segment(doc, "g.md", Options{})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if strings.Contains(chunks[0].Text, "title: Guide") {
		t.Errorf("front matter leaked into chunk text: %q", chunks[0].Text)
	}
}

func TestSegment_SectionTitles(t *testing.T) {
	doc := "preamble before any header\n\n# First\n\none\n\n## Second {#sec-2}\n\ntwo\n\n#### Deep\n\nfour\n"
	chunks := Segment(doc, "t.md", Options{})
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	want := []string{"", "First", "Second", "Deep"}
	for i, w := range want {
		if chunks[i].Meta.Section != w {
			t.Errorf("chunk %d section = %q, want %q", i, chunks[i].Meta.Section, w)
		}
		if chunks[i].Meta.Source != "t.md" {
			t.Errorf("chunk %d source = %q", i, chunks[i].Meta.Source)
		}
	}
}

func TestSegment_FiveHashesIsNotBoundary(t *testing.T) {
	doc := "# Top\n\nbody\n\n##### not a section header\n\nmore\n"
	chunks := Segment(doc, "h.md", Options{})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk (5-hash line is plain text), got %d", len(chunks))
	}
}

func TestSegment_EmptyInput(t *testing.T) {
	for _, doc := range []string{"", "   \n\n  \t\n"} {
		if got := Segment(doc, "e.md", Options{}); len(got) != 0 {
			t.Errorf("Segment(%q) = %d chunks, want 0", doc, len(got))
		}
	}
}

func TestSegment_NoHeaders(t *testing.T) {
	chunks := Segment("just a plain paragraph", "p.md", Options{})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Meta.Section != "" {
		t.Errorf("headerless document should have empty section, got %q", chunks[0].Meta.Section)
	}
	if chunks[0].Text != "just a plain paragraph" {
		t.Errorf("unexpected text %q", chunks[0].Text)
	}
}

func TestSegment_ExactMaxSizeNotSplit(t *testing.T) {
	text := strings.Repeat("a", 50)
	chunks := Segment(text, "x.md", Options{MaxChunkSize: 50, Overlap: 10})
	if len(chunks) != 1 {
		t.Fatalf("section exactly at max size must stay one chunk, got %d", len(chunks))
	}
}

func TestSegment_SizeBound(t *testing.T) {
	paras := make([]string, 40)
	for i := range paras {
		paras[i] = strings.Repeat("word ", 8) // 40 chars
	}
	doc := "# Big\n\n" + strings.Join(paras, "\n\n")
	chunks := Segment(doc, "b.md", Options{MaxChunkSize: 200, Overlap: 30})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > 200+30+2 { // overlap seed + paragraph separator headroom
			t.Errorf("chunk %d length %d exceeds bound", i, len(c.Text))
		}
	}
}

func TestSegment_SingleOversizedParagraphNotSplit(t *testing.T) {
	para := strings.Repeat("x", 300)
	doc := "# Wide\n\n" + para
	chunks := Segment(doc, "w.md", Options{MaxChunkSize: 100, Overlap: 20})
	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, para) {
			found = true
		}
	}
	if !found {
		t.Error("a paragraph longer than max size must never be split internally")
	}
}

func TestSegment_OverlapSeeding(t *testing.T) {
	short := "# Intro\n\nA short introductory section."

	paras := make([]string, 13)
	for i := range paras {
		paras[i] = strings.Repeat(string(rune('a'+i)), 240)
	}
	big := "## Big\n\n" + strings.Join(paras, "\n\n") // well past 1500 chars

	chunks := Segment(short+"\n\n"+big, "doc.md", Options{MaxChunkSize: 1500, Overlap: 200})

	var intro, bigChunks []int
	for i, c := range chunks {
		switch c.Meta.Section {
		case "Intro":
			intro = append(intro, i)
		case "Big":
			bigChunks = append(bigChunks, i)
		}
	}
	if len(intro) != 1 {
		t.Fatalf("intro section should be a single chunk, got %d", len(intro))
	}
	if len(bigChunks) < 2 {
		t.Fatalf("big section should split, got %d chunks", len(bigChunks))
	}

	first := chunks[bigChunks[0]].Text
	second := chunks[bigChunks[1]].Text
	tail := first[len(first)-200:]
	if !strings.HasPrefix(second, tail) {
		t.Errorf("second chunk should start with the 200-char tail of the first;\n tail = %q\n head = %q",
			tail, second[:min(len(second), 220)])
	}
}

func TestSegment_ZeroOverlap(t *testing.T) {
	paras := []string{strings.Repeat("a", 90), strings.Repeat("b", 90), strings.Repeat("c", 90)}
	doc := strings.Join(paras, "\n\n")
	chunks := Segment(doc, "z.md", Options{MaxChunkSize: 100, Overlap: 0})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Text != paras[i] {
			t.Errorf("chunk %d = %q, want bare paragraph", i, c.Text)
		}
	}
}

func TestSegment_Coverage(t *testing.T) {
	paras := []string{"first passage", "second passage", "third passage", "fourth passage"}
	doc := "# A\n\n" + paras[0] + "\n\n" + paras[1] + "\n\n# B\n\n" + paras[2] + "\n\n" + paras[3]
	chunks := Segment(doc, "c.md", Options{MaxChunkSize: 40, Overlap: 5})

	var all strings.Builder
	for _, c := range chunks {
		all.WriteString(c.Text)
		all.WriteString("\n")
	}
	for _, p := range paras {
		if !strings.Contains(all.String(), p) {
			t.Errorf("paragraph %q missing from every chunk", p)
		}
	}
}
