package docsource

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/unicitykb/ragserve/engine/domain"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"zeta.md":     {Data: []byte("# Z\n\nlast")},
		"alpha.md":    {Data: []byte("# A\n\nfirst")},
		"notes.txt":   {Data: []byte("not a document")},
		"pic/img.png": {Data: []byte{0x89}},
		"sub/deep.md": {Data: []byte("nested, not listed")},
		"README":      {Data: []byte("no extension")},
	}
}

func TestList(t *testing.T) {
	s := New(testFS())

	names, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha.md", "zeta.md"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List = %v, want %v (sorted, top-level *.md only)", names, want)
	}
}

func TestRead(t *testing.T) {
	s := New(testFS())

	content, err := s.Read(context.Background(), "alpha.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content != "# A\n\nfirst" {
		t.Errorf("content = %q", content)
	}

	if _, err := s.Read(context.Background(), "missing.md"); err == nil {
		t.Error("reading a missing document should fail")
	}
}

func TestList_CancelledContext(t *testing.T) {
	s := New(testFS())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.List(ctx); err == nil {
		t.Error("cancelled context should fail List")
	}
}

func TestNewDir_Missing(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("missing directory must be reported")
	}
	if domain.KindOf(err) != domain.KindConfiguration {
		t.Errorf("kind = %v, want configuration", domain.KindOf(err))
	}
}

func TestNewDir_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewDir(file); domain.KindOf(err) != domain.KindConfiguration {
		t.Errorf("regular file should report configuration error, got %v", err)
	}
}
