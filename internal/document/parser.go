package document

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"jls/internal/rope"
)

var errNoTree = errors.New("parser produced no tree")

// Parser wraps a tree-sitter parser configured for Java.
// A Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter parser for Java sources.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{parser: p}
}

// Parse parses buf, reading it chunk by chunk from the rope. When old is
// non-nil it must already describe the latest edit; unchanged subtrees are
// reused from it.
func (p *Parser) Parse(ctx context.Context, old *sitter.Tree, buf *rope.Rope) (*sitter.Tree, error) {
	tree, err := p.parser.ParseInputCtx(ctx, old, sitter.Input{
		Read: func(offset uint32, _ sitter.Point) []byte {
			return buf.ChunkAt(int(offset))
		},
		Encoding: sitter.InputEncodingUTF8,
	})
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if tree == nil {
		return nil, errNoTree
	}
	return tree, nil
}
