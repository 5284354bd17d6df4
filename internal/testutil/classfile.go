package testutil

import "encoding/binary"

const (
	classMagic     = 0xCAFEBABE
	tagUtf8        = 1
	tagClass       = 7
	tagLong        = 5
	tagMethodref   = 10
	tagNameAndType = 12
)

// ClassBuilder assembles minimal class files for tests. Names are binary
// (slash-separated) as they appear in the constant pool.
type ClassBuilder struct {
	pool    []byte
	next    uint16
	utf8s   map[string]uint16
	classes map[string]uint16

	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     []byte
	fieldCount uint16
	methods    []byte
	methodN    uint16
}

func NewClassBuilder() *ClassBuilder {
	return &ClassBuilder{next: 1, utf8s: map[string]uint16{}, classes: map[string]uint16{}, access: 0x0021}
}

func (c *ClassBuilder) Utf8(s string) uint16 {
	if idx, ok := c.utf8s[s]; ok {
		return idx
	}
	return c.RawUtf8([]byte(s), s)
}

// RawUtf8 adds a Utf8 constant with pre-encoded bytes, recorded under key.
func (c *ClassBuilder) RawUtf8(raw []byte, key string) uint16 {
	c.pool = append(c.pool, tagUtf8)
	c.pool = binary.BigEndian.AppendUint16(c.pool, uint16(len(raw)))
	c.pool = append(c.pool, raw...)
	idx := c.next
	c.next++
	c.utf8s[key] = idx
	return idx
}

func (c *ClassBuilder) Class(binaryName string) uint16 {
	if idx, ok := c.classes[binaryName]; ok {
		return idx
	}
	idx := c.ClassForUtf8(c.Utf8(binaryName))
	c.classes[binaryName] = idx
	return idx
}

// ClassForUtf8 adds a Class constant naming an existing Utf8 constant.
func (c *ClassBuilder) ClassForUtf8(nameIdx uint16) uint16 {
	c.pool = append(c.pool, tagClass)
	c.pool = binary.BigEndian.AppendUint16(c.pool, nameIdx)
	idx := c.next
	c.next++
	return idx
}

// Long adds a Long constant, which occupies two pool slots.
func (c *ClassBuilder) Long(v uint64) uint16 {
	c.pool = append(c.pool, tagLong)
	c.pool = binary.BigEndian.AppendUint64(c.pool, v)
	idx := c.next
	c.next += 2
	return idx
}

func (c *ClassBuilder) MethodRef(class, name, desc string) uint16 {
	cls := c.Class(class)
	nat := c.NameAndType(name, desc)
	c.pool = append(c.pool, tagMethodref)
	c.pool = binary.BigEndian.AppendUint16(c.pool, cls)
	c.pool = binary.BigEndian.AppendUint16(c.pool, nat)
	idx := c.next
	c.next++
	return idx
}

func (c *ClassBuilder) NameAndType(name, desc string) uint16 {
	n, d := c.Utf8(name), c.Utf8(desc)
	c.pool = append(c.pool, tagNameAndType)
	c.pool = binary.BigEndian.AppendUint16(c.pool, n)
	c.pool = binary.BigEndian.AppendUint16(c.pool, d)
	idx := c.next
	c.next++
	return idx
}

func (c *ClassBuilder) SetThis(binaryName string) *ClassBuilder {
	c.this = c.Class(binaryName)
	return c
}

// SetThisIndex points this_class at an arbitrary pool index.
func (c *ClassBuilder) SetThisIndex(idx uint16) *ClassBuilder {
	c.this = idx
	return c
}

func (c *ClassBuilder) SetSuper(binaryName string) *ClassBuilder {
	c.super = c.Class(binaryName)
	return c
}

func (c *ClassBuilder) AddInterface(binaryName string) *ClassBuilder {
	c.interfaces = append(c.interfaces, c.Class(binaryName))
	return c
}

func (c *ClassBuilder) AddField(access uint16, name, desc string) *ClassBuilder {
	c.fields = binary.BigEndian.AppendUint16(c.fields, access)
	c.fields = binary.BigEndian.AppendUint16(c.fields, c.Utf8(name))
	c.fields = binary.BigEndian.AppendUint16(c.fields, c.Utf8(desc))
	c.fields = c.attribute(c.fields, "ConstantValue", []byte{0, 1})
	c.fieldCount++
	return c
}

// AddMethod appends a method carrying a dummy Code attribute.
func (c *ClassBuilder) AddMethod(access uint16, name, desc string) *ClassBuilder {
	c.methods = binary.BigEndian.AppendUint16(c.methods, access)
	c.methods = binary.BigEndian.AppendUint16(c.methods, c.Utf8(name))
	c.methods = binary.BigEndian.AppendUint16(c.methods, c.Utf8(desc))
	c.methods = c.attribute(c.methods, "Code", []byte{0, 1, 0, 1, 0, 0, 0, 1, 0xb1, 0, 0, 0, 0})
	c.methodN++
	return c
}

func (c *ClassBuilder) attribute(dst []byte, name string, body []byte) []byte {
	dst = binary.BigEndian.AppendUint16(dst, 1)
	dst = binary.BigEndian.AppendUint16(dst, c.Utf8(name))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(body)))
	return append(dst, body...)
}

// Bytes emits the class file.
func (c *ClassBuilder) Bytes() []byte {
	// Attribute names must be in the pool before it is emitted.
	sourceFile := c.Utf8("SourceFile")
	sourceName := c.Utf8("Test.java")

	out := binary.BigEndian.AppendUint32(nil, classMagic)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, 61)
	out = binary.BigEndian.AppendUint16(out, c.next)
	out = append(out, c.pool...)
	out = binary.BigEndian.AppendUint16(out, c.access)
	out = binary.BigEndian.AppendUint16(out, c.this)
	out = binary.BigEndian.AppendUint16(out, c.super)
	out = binary.BigEndian.AppendUint16(out, uint16(len(c.interfaces)))
	for _, i := range c.interfaces {
		out = binary.BigEndian.AppendUint16(out, i)
	}
	out = binary.BigEndian.AppendUint16(out, c.fieldCount)
	out = append(out, c.fields...)
	out = binary.BigEndian.AppendUint16(out, c.methodN)
	out = append(out, c.methods...)
	out = binary.BigEndian.AppendUint16(out, 1)
	out = binary.BigEndian.AppendUint16(out, sourceFile)
	out = binary.BigEndian.AppendUint32(out, 2)
	out = binary.BigEndian.AppendUint16(out, sourceName)
	return out
}

// SimpleClass returns the bytes of a small class named binaryName with one
// method per descriptor.
func SimpleClass(binaryName string, methods map[string]string) []byte {
	b := NewClassBuilder().SetThis(binaryName).SetSuper("java/lang/Object")
	for name, desc := range methods {
		b.AddMethod(0x0001, name, desc)
	}
	return b.Bytes()
}
