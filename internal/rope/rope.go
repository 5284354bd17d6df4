// Package rope provides a byte rope with a newline index, used as the text
// buffer of open documents. Inserts and removals touch O(log n) nodes and
// copy only the leaves they split.
package rope

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	// maxLeaf is the largest leaf produced when chunking new text.
	maxLeaf = 512
	// maxDepth triggers a rebalance once a concatenation gets deeper than this.
	maxDepth = 48
)

// ErrOutOfRange is returned for offsets outside [0, Len()].
var ErrOutOfRange = errors.New("rope: offset out of range")

type node struct {
	left, right *node
	leaf        []byte
	length      int // bytes in subtree
	newlines    int // '\n' count in subtree
	depth       int
}

func (n *node) isLeaf() bool { return n.left == nil && n.right == nil }

func newLeaf(b []byte) *node {
	return &node{leaf: b, length: len(b), newlines: bytes.Count(b, []byte{'\n'})}
}

func concat(a, b *node) *node {
	if a == nil || a.length == 0 {
		return b
	}
	if b == nil || b.length == 0 {
		return a
	}
	d := a.depth
	if b.depth > d {
		d = b.depth
	}
	return &node{
		left:     a,
		right:    b,
		length:   a.length + b.length,
		newlines: a.newlines + b.newlines,
		depth:    d + 1,
	}
}

// Rope is a mutable handle over an immutable tree of byte chunks.
// The zero value is an empty rope.
type Rope struct {
	root *node
}

// New returns a rope holding s.
func New(s string) *Rope {
	return &Rope{root: build([]byte(s))}
}

func build(b []byte) *node {
	if len(b) == 0 {
		return nil
	}
	leaves := make([]*node, 0, len(b)/maxLeaf+1)
	for len(b) > 0 {
		n := maxLeaf
		if n > len(b) {
			n = len(b)
		}
		chunk := make([]byte, n)
		copy(chunk, b[:n])
		leaves = append(leaves, newLeaf(chunk))
		b = b[n:]
	}
	return balanced(leaves)
}

func balanced(leaves []*node) *node {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	}
	mid := len(leaves) / 2
	return concat(balanced(leaves[:mid]), balanced(leaves[mid:]))
}

// Len returns the length in bytes.
func (r *Rope) Len() int {
	if r.root == nil {
		return 0
	}
	return r.root.length
}

// LineCount returns the number of lines; an empty rope has one line.
func (r *Rope) LineCount() int {
	if r.root == nil {
		return 1
	}
	return r.root.newlines + 1
}

// String returns the full content. It copies the whole buffer.
func (r *Rope) String() string {
	var buf bytes.Buffer
	buf.Grow(r.Len())
	walkLeaves(r.root, func(b []byte) { buf.Write(b) })
	return buf.String()
}

func walkLeaves(n *node, fn func([]byte)) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		fn(n.leaf)
		return
	}
	walkLeaves(n.left, fn)
	walkLeaves(n.right, fn)
}

// Insert places s at byte offset at.
func (r *Rope) Insert(at int, s string) error {
	if at < 0 || at > r.Len() {
		return fmt.Errorf("%w: insert at %d, len %d", ErrOutOfRange, at, r.Len())
	}
	if s == "" {
		return nil
	}
	left, right := split(r.root, at)
	r.root = r.fix(concat(concat(left, build([]byte(s))), right))
	return nil
}

// Remove deletes the bytes in [start, end).
func (r *Rope) Remove(start, end int) error {
	if start < 0 || end > r.Len() || start > end {
		return fmt.Errorf("%w: remove [%d,%d), len %d", ErrOutOfRange, start, end, r.Len())
	}
	if start == end {
		return nil
	}
	left, rest := split(r.root, start)
	_, right := split(rest, end-start)
	r.root = r.fix(concat(left, right))
	return nil
}

func (r *Rope) fix(n *node) *node {
	if n == nil || n.depth <= maxDepth {
		return n
	}
	var leaves []*node
	var pending []byte
	walkLeaves(n, func(b []byte) {
		if len(pending)+len(b) <= maxLeaf {
			pending = append(pending, b...)
			return
		}
		if len(pending) > 0 {
			leaves = append(leaves, newLeaf(pending))
		}
		pending = append([]byte(nil), b...)
	})
	if len(pending) > 0 {
		leaves = append(leaves, newLeaf(pending))
	}
	return balanced(leaves)
}

// split returns the subtrees holding [0, at) and [at, len).
func split(n *node, at int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if at <= 0 {
		return nil, n
	}
	if at >= n.length {
		return n, nil
	}
	if n.isLeaf() {
		l := make([]byte, at)
		copy(l, n.leaf[:at])
		rr := make([]byte, n.length-at)
		copy(rr, n.leaf[at:])
		return newLeaf(l), newLeaf(rr)
	}
	if at < n.left.length {
		ll, lr := split(n.left, at)
		return ll, concat(lr, n.right)
	}
	rl, rr := split(n.right, at-n.left.length)
	return concat(n.left, rl), rr
}

// Slice copies the bytes in [start, end).
func (r *Rope) Slice(start, end int) ([]byte, error) {
	if start < 0 || end > r.Len() || start > end {
		return nil, fmt.Errorf("%w: slice [%d,%d), len %d", ErrOutOfRange, start, end, r.Len())
	}
	out := make([]byte, 0, end-start)
	collect(r.root, start, end, &out)
	return out, nil
}

func collect(n *node, start, end int, out *[]byte) {
	if n == nil || start >= end {
		return
	}
	if n.isLeaf() {
		*out = append(*out, n.leaf[start:end]...)
		return
	}
	if start < n.left.length {
		e := end
		if e > n.left.length {
			e = n.left.length
		}
		collect(n.left, start, e, out)
	}
	if end > n.left.length {
		s := start - n.left.length
		if s < 0 {
			s = 0
		}
		collect(n.right, s, end-n.left.length, out)
	}
}

// ChunkAt returns the leaf bytes from off to the end of the leaf holding off,
// or nil at or past the end. The returned slice must not be modified.
func (r *Rope) ChunkAt(off int) []byte {
	n := r.root
	if n == nil || off < 0 || off >= n.length {
		return nil
	}
	for !n.isLeaf() {
		if off < n.left.length {
			n = n.left
		} else {
			off -= n.left.length
			n = n.right
		}
	}
	return n.leaf[off:]
}

// LineStart returns the byte offset at which line (0-based) begins.
func (r *Rope) LineStart(line int) (int, error) {
	if line < 0 || line >= r.LineCount() {
		return 0, fmt.Errorf("%w: line %d of %d", ErrOutOfRange, line, r.LineCount())
	}
	if line == 0 {
		return 0, nil
	}
	return afterNewline(r.root, line), nil
}

// afterNewline returns the offset just past the k-th (1-based) newline.
func afterNewline(n *node, k int) int {
	off := 0
	for !n.isLeaf() {
		if k <= n.left.newlines {
			n = n.left
		} else {
			k -= n.left.newlines
			off += n.left.length
			n = n.right
		}
	}
	for i, c := range n.leaf {
		if c == '\n' {
			k--
			if k == 0 {
				return off + i + 1
			}
		}
	}
	return off + n.length
}

// LineEnd returns the offset of the newline terminating line, or Len() for the last line.
func (r *Rope) LineEnd(line int) (int, error) {
	if line < 0 || line >= r.LineCount() {
		return 0, fmt.Errorf("%w: line %d of %d", ErrOutOfRange, line, r.LineCount())
	}
	if line == r.LineCount()-1 {
		return r.Len(), nil
	}
	return afterNewline(r.root, line+1) - 1, nil
}

// Point returns the 0-based line and byte column of off.
func (r *Rope) Point(off int) (line, col int, err error) {
	if off < 0 || off > r.Len() {
		return 0, 0, fmt.Errorf("%w: point at %d, len %d", ErrOutOfRange, off, r.Len())
	}
	line = newlinesBefore(r.root, off)
	start, err := r.LineStart(line)
	if err != nil {
		return 0, 0, err
	}
	return line, off - start, nil
}

func newlinesBefore(n *node, off int) int {
	count := 0
	for n != nil && !n.isLeaf() {
		if off <= n.left.length {
			n = n.left
		} else {
			count += n.left.newlines
			off -= n.left.length
			n = n.right
		}
	}
	if n == nil {
		return count
	}
	return count + bytes.Count(n.leaf[:off], []byte{'\n'})
}
