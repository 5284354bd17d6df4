package rope

import (
	"errors"
	"strings"
	"testing"
)

func TestNewAndString(t *testing.T) {
	tests := []string{"", "a", "hello\nworld\n", strings.Repeat("x", 3*maxLeaf+7)}
	for _, s := range tests {
		r := New(s)
		if got := r.String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
		if r.Len() != len(s) {
			t.Errorf("Len() = %d, want %d", r.Len(), len(s))
		}
	}
}

func TestInsertRemove(t *testing.T) {
	r := New("class A {}\n")

	if err := r.Insert(9, " int x; "); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got, want := r.String(), "class A { int x; }\n"; got != want {
		t.Fatalf("after insert = %q, want %q", got, want)
	}

	if err := r.Remove(10, 17); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, want := r.String(), "class A { }\n"; got != want {
		t.Fatalf("after remove = %q, want %q", got, want)
	}

	if err := r.Insert(r.Len(), "// end"); err != nil {
		t.Fatalf("Insert at end: %v", err)
	}
	if got, want := r.String(), "class A { }\n// end"; got != want {
		t.Fatalf("after append = %q, want %q", got, want)
	}
}

func TestOutOfRange(t *testing.T) {
	r := New("abc")
	if err := r.Insert(4, "x"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Insert past end err = %v, want ErrOutOfRange", err)
	}
	if err := r.Remove(2, 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Remove inverted err = %v, want ErrOutOfRange", err)
	}
	if _, err := r.LineStart(1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("LineStart(1) err = %v, want ErrOutOfRange", err)
	}
}

func TestManyEditsMatchString(t *testing.T) {
	r := New("")
	var want strings.Builder
	for i := 0; i < 2000; i++ {
		line := "line\n"
		if err := r.Insert(r.Len(), line); err != nil {
			t.Fatal(err)
		}
		want.WriteString(line)
	}
	// Delete every other line from the front, forcing deep trees and rebalancing.
	expected := want.String()
	for i := 0; i < 500; i++ {
		if err := r.Remove(0, 5); err != nil {
			t.Fatal(err)
		}
		expected = expected[5:]
	}
	if r.String() != expected {
		t.Fatal("content diverged after repeated edits")
	}
	if got, want := r.LineCount(), 1501; got != want {
		t.Errorf("LineCount() = %d, want %d", got, want)
	}
	if r.root.depth > maxDepth+1 {
		t.Errorf("depth = %d, want <= %d", r.root.depth, maxDepth+1)
	}
}

func TestLineIndex(t *testing.T) {
	r := New("ab\ncde\n\nf")

	starts := []int{0, 3, 7, 8}
	for line, want := range starts {
		got, err := r.LineStart(line)
		if err != nil {
			t.Fatalf("LineStart(%d): %v", line, err)
		}
		if got != want {
			t.Errorf("LineStart(%d) = %d, want %d", line, got, want)
		}
	}

	ends := []int{2, 6, 7, 9}
	for line, want := range ends {
		got, err := r.LineEnd(line)
		if err != nil {
			t.Fatalf("LineEnd(%d): %v", line, err)
		}
		if got != want {
			t.Errorf("LineEnd(%d) = %d, want %d", line, got, want)
		}
	}

	line, col, err := r.Point(5)
	if err != nil {
		t.Fatal(err)
	}
	if line != 1 || col != 2 {
		t.Errorf("Point(5) = (%d,%d), want (1,2)", line, col)
	}
}

func TestSliceAndChunks(t *testing.T) {
	src := strings.Repeat("0123456789", 200)
	r := New(src)

	got, err := r.Slice(505, 1020)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != src[505:1020] {
		t.Error("Slice across leaves returned wrong bytes")
	}

	var rebuilt []byte
	for off := 0; ; {
		chunk := r.ChunkAt(off)
		if chunk == nil {
			break
		}
		rebuilt = append(rebuilt, chunk...)
		off += len(chunk)
	}
	if string(rebuilt) != src {
		t.Error("ChunkAt iteration did not reproduce content")
	}
}
