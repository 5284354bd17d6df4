// Package document keeps open Java files in sync with editor edits: a rope
// buffer plus an incrementally reparsed tree-sitter tree.
package document

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	jlserrors "jls/internal/errors"
	"jls/internal/rope"
)

// ErrParse matches any error whose code is PARSE_FAILED.
var ErrParse = &jlserrors.JlsError{Code: jlserrors.ParseFailed}

// Document is one open source file.
//
// The buffer and the tree move together on every edit. When a reparse fails
// the buffer keeps the edit and the document is marked degraded: symbol
// queries return nothing and the next edit reparses from scratch instead of
// reusing the stale tree.
type Document struct {
	uri      string
	version  int
	buf      *rope.Rope
	tree     *sitter.Tree
	degraded bool

	parser *Parser
	parse  func(ctx context.Context, old *sitter.Tree, buf *rope.Rope) (*sitter.Tree, error)
}

// New builds a document and its initial syntax tree. Trees containing syntax
// errors are fine; only a parser that yields no tree at all is an error.
func New(ctx context.Context, uri string, version int, content string) (*Document, error) {
	p := NewParser()
	d := &Document{
		uri:     uri,
		version: version,
		buf:     rope.New(content),
		parser:  p,
		parse:   p.Parse,
	}
	tree, err := d.parse(ctx, nil, d.buf)
	if err != nil {
		return nil, jlserrors.New(jlserrors.ParseFailed, "could not parse "+uri, err)
	}
	d.tree = tree
	return d, nil
}

// URI returns the document URI.
func (d *Document) URI() string { return d.uri }

// Version returns the last applied version.
func (d *Document) Version() int { return d.version }

// SetVersion records the version of the change set just applied.
func (d *Document) SetVersion(v int) { d.version = v }

// ShouldApply reports whether a change carrying version v is newer than the document.
func (d *Document) ShouldApply(v int) bool { return d.version < v }

// Text returns the full buffer content.
func (d *Document) Text() string { return d.buf.String() }

// Degraded reports whether the last reparse failed.
func (d *Document) Degraded() bool { return d.degraded }

// ApplyEdit replaces the text between start and end with replacement and
// reparses incrementally. On a parse failure the buffer keeps the edit and an
// error coded PARSE_FAILED is returned.
func (d *Document) ApplyEdit(ctx context.Context, start, end Position, replacement string) error {
	lo, hi := d.Offset(start), d.Offset(end)
	if lo > hi {
		lo, hi = hi, lo
	}

	startRow, startCol, err := d.buf.Point(lo)
	if err != nil {
		return jlserrors.New(jlserrors.InternalError, "edit start out of range", err)
	}
	oldEndRow, oldEndCol, err := d.buf.Point(hi)
	if err != nil {
		return jlserrors.New(jlserrors.InternalError, "edit end out of range", err)
	}

	if err := d.buf.Remove(lo, hi); err != nil {
		return jlserrors.New(jlserrors.InternalError, "remove edited range", err)
	}
	if replacement != "" {
		if err := d.buf.Insert(lo, replacement); err != nil {
			return jlserrors.New(jlserrors.InternalError, "insert replacement", err)
		}
	}

	newEnd := lo + len(replacement)
	newEndRow, newEndCol, err := d.buf.Point(newEnd)
	if err != nil {
		return jlserrors.New(jlserrors.InternalError, "edit new end out of range", err)
	}

	old := d.tree
	if d.degraded {
		old = nil
	}
	if old != nil {
		old.Edit(sitter.EditInput{
			StartIndex:  uint32(lo),
			OldEndIndex: uint32(hi),
			NewEndIndex: uint32(newEnd),
			StartPoint:  sitter.Point{Row: uint32(startRow), Column: uint32(startCol)},
			OldEndPoint: sitter.Point{Row: uint32(oldEndRow), Column: uint32(oldEndCol)},
			NewEndPoint: sitter.Point{Row: uint32(newEndRow), Column: uint32(newEndCol)},
		})
	}

	tree, err := d.parse(ctx, old, d.buf)
	if err != nil {
		d.degraded = true
		return jlserrors.New(jlserrors.ParseFailed, "could not reparse "+d.uri, err)
	}
	d.tree = tree
	d.degraded = false
	return nil
}

// Replace swaps the whole content and parses it from scratch.
func (d *Document) Replace(ctx context.Context, content string) error {
	d.buf = rope.New(content)
	tree, err := d.parse(ctx, nil, d.buf)
	if err != nil {
		d.degraded = true
		return jlserrors.New(jlserrors.ParseFailed, "could not parse "+d.uri, err)
	}
	d.tree = tree
	d.degraded = false
	return nil
}

// nodeText returns the buffer bytes spanned by n.
func (d *Document) nodeText(n *sitter.Node) string {
	b, err := d.buf.Slice(int(n.StartByte()), int(n.EndByte()))
	if err != nil {
		return ""
	}
	return string(b)
}
