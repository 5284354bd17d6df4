package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptor is wrapped by every descriptor grammar failure.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// ParseMethodDescriptor decodes a method descriptor such as
// "(ILjava/lang/String;[I)V" into parameter types and a return type.
func ParseMethodDescriptor(desc string) ([]JavaType, JavaType, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, JavaType{}, fmt.Errorf("%w: %q does not start with '('", ErrInvalidDescriptor, desc)
	}
	rest := desc[1:]
	var params []JavaType
	for {
		if rest == "" {
			return nil, JavaType{}, fmt.Errorf("%w: %q is missing ')'", ErrInvalidDescriptor, desc)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		t, n, err := parseType(rest, false)
		if err != nil {
			return nil, JavaType{}, fmt.Errorf("%w in %q", err, desc)
		}
		params = append(params, t)
		rest = rest[n:]
	}

	if rest == "" {
		return nil, JavaType{}, fmt.Errorf("%w: %q is missing a return type", ErrInvalidDescriptor, desc)
	}
	ret, n, err := parseType(rest, true)
	if err != nil {
		return nil, JavaType{}, fmt.Errorf("%w in %q", err, desc)
	}
	if n != len(rest) {
		return nil, JavaType{}, fmt.Errorf("%w: trailing %q in %q", ErrInvalidDescriptor, rest[n:], desc)
	}
	return params, ret, nil
}

// ParseFieldDescriptor decodes a single field type such as "[[Ljava/util/Map;".
func ParseFieldDescriptor(desc string) (JavaType, error) {
	t, n, err := parseType(desc, false)
	if err != nil {
		return JavaType{}, err
	}
	if n != len(desc) {
		return JavaType{}, fmt.Errorf("%w: trailing %q in %q", ErrInvalidDescriptor, desc[n:], desc)
	}
	return t, nil
}

// parseType decodes one type code at the start of s and returns it with the
// number of bytes consumed.
func parseType(s string, allowVoid bool) (JavaType, int, error) {
	if s == "" {
		return JavaType{}, 0, fmt.Errorf("%w: unexpected end", ErrInvalidDescriptor)
	}
	switch s[0] {
	case 'B':
		return JavaType{Kind: Byte}, 1, nil
	case 'C':
		return JavaType{Kind: Char}, 1, nil
	case 'D':
		return JavaType{Kind: Double}, 1, nil
	case 'F':
		return JavaType{Kind: Float}, 1, nil
	case 'I':
		return JavaType{Kind: Int}, 1, nil
	case 'J':
		return JavaType{Kind: Long}, 1, nil
	case 'S':
		return JavaType{Kind: Short}, 1, nil
	case 'Z':
		return JavaType{Kind: Boolean}, 1, nil
	case 'V':
		if !allowVoid {
			return JavaType{}, 0, fmt.Errorf("%w: void outside return position", ErrInvalidDescriptor)
		}
		return JavaType{Kind: Void}, 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return JavaType{}, 0, fmt.Errorf("%w: class type without ';'", ErrInvalidDescriptor)
		}
		if end == 1 {
			return JavaType{}, 0, fmt.Errorf("%w: empty class name", ErrInvalidDescriptor)
		}
		return ClassOf(binaryToDotted(s[1:end])), end + 1, nil
	case '[':
		elem, n, err := parseType(s[1:], false)
		if err != nil {
			return JavaType{}, 0, err
		}
		return ArrayOf(elem), n + 1, nil
	default:
		return JavaType{}, 0, fmt.Errorf("%w: unexpected %q", ErrInvalidDescriptor, s[0])
	}
}
