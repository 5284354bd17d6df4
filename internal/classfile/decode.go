package classfile

import (
	"errors"
	"fmt"

	jlserrors "jls/internal/errors"
)

// ErrInvalidClassFile is wrapped by every container-level decode failure.
var ErrInvalidClassFile = errors.New("invalid class file")

const magic = 0xCAFEBABE

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type cpEntry struct {
	tag  uint8
	utf8 string
	ref  uint16 // name_index for Class, Module, Package
}

type constantPool []cpEntry

func (cp constantPool) utf8(idx uint16) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(cp) || cp[idx].tag != tagUtf8 {
		return "", fmt.Errorf("%w: constant #%d is not Utf8", ErrInvalidClassFile, idx)
	}
	return cp[idx].utf8, nil
}

func (cp constantPool) className(idx uint16) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(cp) || cp[idx].tag != tagClass {
		return "", fmt.Errorf("%w: constant #%d is not Class", ErrInvalidClassFile, idx)
	}
	name, err := cp.utf8(cp[idx].ref)
	if err != nil {
		return "", err
	}
	return binaryToDotted(name), nil
}

// Decode parses a class file. It fails when the bytes are not a well-formed
// class file, when this_class does not resolve to a Class/Utf8 pair, or when
// any method descriptor is malformed. Errors carry code CLASS_DECODE_FAILED.
func Decode(b []byte) (*ClassDescriptor, error) {
	cd, err := decode(b)
	if err != nil {
		return nil, jlserrors.New(jlserrors.ClassDecodeFailed, "decode class file", err)
	}
	return cd, nil
}

func decode(b []byte) (*ClassDescriptor, error) {
	r := &reader{b: b}
	if m := r.u4(); r.err == nil && m != magic {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidClassFile, m)
	}
	r.u2() // minor
	r.u2() // major

	cp, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	cd := &ClassDescriptor{Access: AccessFlags(r.u2())}
	thisClass := r.u2()
	superClass := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if cd.Name, err = cp.className(thisClass); err != nil {
		return nil, err
	}
	if superClass != 0 {
		if cd.SuperName, err = cp.className(superClass); err != nil {
			return nil, err
		}
	}

	for n := r.u2(); n > 0 && r.err == nil; n-- {
		iface, err := cp.className(r.u2())
		if r.err != nil {
			break
		}
		if err != nil {
			return nil, err
		}
		cd.Interfaces = append(cd.Interfaces, iface)
	}

	// Fields are skipped; only their attributes need walking.
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		r.skip(6)
		skipAttributes(r)
	}

	methodCount := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	cd.Methods = make([]Method, 0, methodCount)
	for i := 0; i < int(methodCount); i++ {
		m, err := readMethod(r, cp)
		if err != nil {
			return nil, err
		}
		cd.Methods = append(cd.Methods, m)
	}

	skipAttributes(r)
	if r.err != nil {
		return nil, r.err
	}
	return cd, nil
}

func readConstantPool(r *reader) (constantPool, error) {
	count := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: empty constant pool", ErrInvalidClassFile)
	}
	cp := make(constantPool, count)
	for i := 1; i < int(count); i++ {
		tag := r.u1()
		switch tag {
		case tagUtf8:
			n := r.u2()
			raw := r.bytes(int(n))
			if r.err != nil {
				return nil, r.err
			}
			s, err := decodeModifiedUTF8(raw)
			if err != nil {
				return nil, fmt.Errorf("constant #%d: %w", i, err)
			}
			cp[i] = cpEntry{tag: tag, utf8: s}
		case tagClass, tagModule, tagPackage:
			cp[i] = cpEntry{tag: tag, ref: r.u2()}
		case tagString, tagMethodType:
			cp[i] = cpEntry{tag: tag}
			r.skip(2)
		case tagMethodHandle:
			cp[i] = cpEntry{tag: tag}
			r.skip(3)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			cp[i] = cpEntry{tag: tag}
			r.skip(4)
		case tagLong, tagDouble:
			cp[i] = cpEntry{tag: tag}
			r.skip(8)
			// 8-byte constants take two slots.
			i++
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: unknown constant tag %d at #%d", ErrInvalidClassFile, tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	return cp, nil
}

func readMethod(r *reader, cp constantPool) (Method, error) {
	access := AccessFlags(r.u2())
	nameIdx := r.u2()
	descIdx := r.u2()
	if r.err != nil {
		return Method{}, r.err
	}
	skipAttributes(r)
	if r.err != nil {
		return Method{}, r.err
	}

	name, err := cp.utf8(nameIdx)
	if err != nil {
		return Method{}, err
	}
	desc, err := cp.utf8(descIdx)
	if err != nil {
		return Method{}, err
	}
	params, ret, err := ParseMethodDescriptor(desc)
	if err != nil {
		return Method{}, fmt.Errorf("method %s: %w", name, err)
	}
	return Method{Access: access, Name: name, Params: params, ReturnType: ret}, nil
}

func skipAttributes(r *reader) {
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		r.skip(2)
		r.skip(int(r.u4()))
	}
}
