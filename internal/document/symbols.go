package document

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// SymbolAt resolves the type name under pos to the fully qualified name of a
// matching single-type import. It returns false when the node at pos is not a
// type identifier, when no import ends with that simple name, or while the
// document is degraded.
func (d *Document) SymbolAt(pos Position) (string, bool) {
	if d.tree == nil || d.degraded {
		return "", false
	}
	root := d.tree.RootNode()
	imports := d.imports(root)

	node := smallestAt(root, uint32(d.Offset(pos)))
	if node == nil || node.Type() != "type_identifier" {
		return "", false
	}
	name := d.nodeText(node)
	for _, imp := range imports {
		if strings.HasSuffix(imp, "."+name) {
			return imp, true
		}
	}
	return "", false
}

// Imports returns the explicitly imported names in source order. Wildcard
// imports are skipped.
func (d *Document) Imports() []string {
	if d.tree == nil || d.degraded {
		return nil
	}
	return d.imports(d.tree.RootNode())
}

// imports walks the tree in pre-order and collects the name child of each
// non-wildcard import declaration. The name follows the "import" keyword, or
// "static" for static imports.
func (d *Document) imports(root *sitter.Node) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "import_declaration" {
			if name, wildcard := importName(n); name != nil && !wildcard {
				out = append(out, d.nodeText(name))
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

func importName(decl *sitter.Node) (name *sitter.Node, wildcard bool) {
	for i := 0; i < int(decl.ChildCount()); i++ {
		c := decl.Child(i)
		if c == nil {
			continue
		}
		switch c.Type() {
		case "scoped_identifier", "identifier":
			if name == nil {
				name = c
			}
		case "asterisk":
			wildcard = true
		}
	}
	return name, wildcard
}

// smallestAt descends to the deepest node whose byte span contains off.
func smallestAt(n *sitter.Node, off uint32) *sitter.Node {
	if n == nil || off < n.StartByte() || off > n.EndByte() {
		return nil
	}
	for {
		var next *sitter.Node
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			if c.StartByte() <= off && off < c.EndByte() {
				next = c
				break
			}
		}
		if next == nil {
			return n
		}
		n = next
	}
}
