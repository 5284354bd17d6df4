// Package classfile decodes compiled JVM class files into a small symbol model:
// the class name and its methods with typed signatures. It performs no I/O.
package classfile

import "strings"

// Kind enumerates the JavaType variants.
type Kind uint8

const (
	Void Kind = iota
	Byte
	Char
	Double
	Float
	Int
	Long
	Short
	Boolean
	Class
	Array
)

var primitiveNames = [...]string{
	Void:    "void",
	Byte:    "byte",
	Char:    "char",
	Double:  "double",
	Float:   "float",
	Int:     "int",
	Long:    "long",
	Short:   "short",
	Boolean: "boolean",
}

// JavaType is a decoded field or return type. Name is set for Class and Elem
// for Array; arrays nest without a depth limit.
type JavaType struct {
	Kind Kind
	Name string
	Elem *JavaType
}

// ClassOf returns the Class type for a dot-separated name.
func ClassOf(name string) JavaType { return JavaType{Kind: Class, Name: name} }

// ArrayOf returns an array type with element elem.
func ArrayOf(elem JavaType) JavaType { return JavaType{Kind: Array, Elem: &elem} }

// String renders the type the way it is written in Java source.
func (t JavaType) String() string {
	switch t.Kind {
	case Class:
		return t.Name
	case Array:
		if t.Elem == nil {
			return "?[]"
		}
		return t.Elem.String() + "[]"
	default:
		if int(t.Kind) < len(primitiveNames) {
			return primitiveNames[t.Kind]
		}
		return "?"
	}
}

// Equal reports whether two types are structurally identical.
func (t JavaType) Equal(o JavaType) bool {
	if t.Kind != o.Kind || t.Name != o.Name {
		return false
	}
	if t.Kind != Array {
		return true
	}
	if t.Elem == nil || o.Elem == nil {
		return t.Elem == o.Elem
	}
	return t.Elem.Equal(*o.Elem)
}

// AccessFlags is the access_flags bitset of a class or member.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSynchronized AccessFlags = 0x0020
	AccBridge       AccessFlags = 0x0040
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

// Has reports whether every bit of f is set.
func (a AccessFlags) Has(f AccessFlags) bool { return a&f == f }

var methodModifiers = []struct {
	flag AccessFlags
	word string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccNative, "native"},
	{AccAbstract, "abstract"},
}

// String renders the method modifiers present in a, in source order.
func (a AccessFlags) String() string {
	var words []string
	for _, m := range methodModifiers {
		if a.Has(m.flag) {
			words = append(words, m.word)
		}
	}
	return strings.Join(words, " ")
}

// Method is one entry of a class's method table.
type Method struct {
	Access     AccessFlags `json:"access" yaml:"access"`
	Name       string      `json:"name" yaml:"name"`
	Params     []JavaType  `json:"params" yaml:"params"`
	ReturnType JavaType    `json:"returnType" yaml:"returnType"`
}

// Signature renders the method as "modifiers returnType name(params)".
func (m Method) Signature() string {
	var b strings.Builder
	if mods := m.Access.String(); mods != "" {
		b.WriteString(mods)
		b.WriteByte(' ')
	}
	b.WriteString(m.ReturnType.String())
	b.WriteByte(' ')
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	return b.String()
}

// ClassDescriptor is an immutable decoded class.
type ClassDescriptor struct {
	Name       string      `json:"name" yaml:"name"`
	Access     AccessFlags `json:"access" yaml:"access"`
	SuperName  string      `json:"superName,omitempty" yaml:"superName,omitempty"`
	Interfaces []string    `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Methods    []Method    `json:"methods" yaml:"methods"`
}

// binaryToDotted converts a slash-separated binary name to a dotted one.
func binaryToDotted(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}
