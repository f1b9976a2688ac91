// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Value is a decoded (but not yet type-asserted) BSON value: its type tag
// plus the exact value bytes that follow an element's key.
type Value struct {
	Type Type
	Data []byte
}

// valueSize computes the byte length of a value of the given type starting
// at data, per the table in spec.md §4.2. It does not allocate or copy.
func valueSize(t Type, data []byte) (int, error) {
	switch t {
	case TypeDouble, TypeDateTime, TypeTimestamp, TypeInt64:
		if len(data) < 8 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		return 8, nil
	case TypeString, TypeJavaScript, TypeSymbol:
		if len(data) < 4 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		l, _, _ := ReadLength(data)
		if l < 1 {
			return 0, ErrKindAsError(ErrKindInvalidLength)
		}
		return 4 + int(l), nil
	case TypeEmbeddedDocument, TypeArray:
		if len(data) < 4 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		l, _, _ := ReadLength(data)
		if l < 5 {
			return 0, ErrKindAsError(ErrKindInvalidLength)
		}
		return int(l), nil
	case TypeBinary:
		if len(data) < 4 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		l, _, _ := ReadLength(data)
		if l < 0 {
			return 0, ErrKindAsError(ErrKindInvalidLength)
		}
		return 5 + int(l), nil
	case TypeUndefined, TypeNull, TypeMinKey, TypeMaxKey:
		return 0, nil
	case TypeObjectID:
		if len(data) < 12 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		return 12, nil
	case TypeBoolean:
		if len(data) < 1 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		return 1, nil
	case TypeRegex:
		i := bytes.IndexByte(data, 0x00)
		if i < 0 {
			return 0, ErrKindAsError(ErrKindInvalidRegex)
		}
		j := bytes.IndexByte(data[i+1:], 0x00)
		if j < 0 {
			return 0, ErrKindAsError(ErrKindInvalidRegex)
		}
		return i + 1 + j + 1, nil
	case TypeDBPointer:
		if len(data) < 4 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		l, _, _ := ReadLength(data)
		if l < 1 {
			return 0, ErrKindAsError(ErrKindInvalidLength)
		}
		return 4 + int(l) + 12, nil
	case TypeCodeWithScope:
		if len(data) < 4 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		l, _, _ := ReadLength(data)
		if l < 14 {
			return 0, ErrKindAsError(ErrKindInvalidLength)
		}
		return int(l), nil
	case TypeInt32:
		if len(data) < 4 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		return 4, nil
	case TypeDecimal128:
		if len(data) < 16 {
			return 0, ErrKindAsError(ErrKindShortRead)
		}
		return 16, nil
	default:
		return 0, ErrKindAsError(ErrKindInvalidType)
	}
}

// ErrKindAsError wraps a bare ErrorKind (no byte offset attached) for use by
// the functions in this file; offsets are filled in by the caller that
// knows its own position (Iterator.Next).
func ErrKindAsError(kind ErrorKind) error { return newDecodeError(kind, -1) }

// Validate decodes v deeply: for scalar types it just confirms the stored
// length is self-consistent; for document/array it recurses.
func (v Value) Validate() error {
	size, err := valueSize(v.Type, v.Data)
	if err != nil {
		return err
	}
	if size > len(v.Data) {
		return lengthError(v.Type.String(), size, len(v.Data))
	}
	switch v.Type {
	case TypeEmbeddedDocument:
		return Document(v.Data[:size]).Validate()
	case TypeArray:
		return Array(v.Data[:size]).Validate()
	}
	return nil
}

func (v Value) String() string {
	switch v.Type {
	case TypeString:
		s, _ := v.StringValueOK()
		return fmt.Sprintf("%q", s)
	case TypeInt32:
		i, _ := v.Int32OK()
		return fmt.Sprintf("%d", i)
	case TypeInt64:
		i, _ := v.Int64OK()
		return fmt.Sprintf("%d", i)
	case TypeDouble:
		f, _ := v.DoubleOK()
		return fmt.Sprintf("%v", f)
	case TypeBoolean:
		b, _ := v.BooleanOK()
		return fmt.Sprintf("%v", b)
	case TypeNull:
		return "null"
	case TypeUndefined:
		return "undefined"
	case TypeEmbeddedDocument:
		d, _ := v.DocumentOK()
		return Document(d).String()
	case TypeArray:
		a, _ := v.ArrayOK()
		return Array(a).String()
	case TypeObjectID:
		id, _ := v.ObjectIDOK()
		return hex.EncodeToString(id[:])
	case TypeBinary:
		_, data, _ := v.BinaryOK()
		return hex.EncodeToString(data)
	default:
		return v.Type.String()
	}
}

func (v Value) typeErr(method string) error { return ElementTypeError{Method: method, Type: v.Type} }

// DoubleOK returns v's float64 value if v.Type is double.
func (v Value) DoubleOK() (float64, bool) {
	if v.Type != TypeDouble {
		return 0, false
	}
	f, _, ok := ReadDouble(v.Data)
	return f, ok
}

// StringValueOK returns v's string if v.Type is string.
func (v Value) StringValueOK() (string, bool) {
	if v.Type != TypeString {
		return "", false
	}
	s, _, ok := ReadString(v.Data)
	return s, ok
}

// DocumentOK returns v's raw embedded document bytes if v.Type is document.
func (v Value) DocumentOK() ([]byte, bool) {
	if v.Type != TypeEmbeddedDocument {
		return nil, false
	}
	size, err := valueSize(v.Type, v.Data)
	if err != nil || size > len(v.Data) {
		return nil, false
	}
	return v.Data[:size], true
}

// ArrayOK returns v's raw embedded array bytes if v.Type is array.
func (v Value) ArrayOK() ([]byte, bool) {
	if v.Type != TypeArray {
		return nil, false
	}
	size, err := valueSize(v.Type, v.Data)
	if err != nil || size > len(v.Data) {
		return nil, false
	}
	return v.Data[:size], true
}

// BinaryOK returns v's subtype and data if v.Type is binary.
func (v Value) BinaryOK() (byte, []byte, bool) {
	if v.Type != TypeBinary || len(v.Data) < 5 {
		return 0, nil, false
	}
	l, rem, ok := ReadLength(v.Data)
	if !ok || int(l) > len(rem)-1 {
		return 0, nil, false
	}
	subtype := rem[0]
	return subtype, rem[1 : 1+l], true
}

// ObjectIDOK returns v's ObjectID if v.Type is objectID.
func (v Value) ObjectIDOK() (ObjectID, bool) {
	if v.Type != TypeObjectID {
		return ObjectID{}, false
	}
	id, _, ok := ReadObjectID(v.Data)
	return id, ok
}

// BooleanOK returns v's bool if v.Type is boolean.
func (v Value) BooleanOK() (bool, bool) {
	if v.Type != TypeBoolean {
		return false, false
	}
	b, _, ok := ReadBoolean(v.Data)
	return b, ok
}

// DateTimeOK returns v's datetime (milliseconds since the Unix epoch) if
// v.Type is datetime.
func (v Value) DateTimeOK() (int64, bool) {
	if v.Type != TypeDateTime {
		return 0, false
	}
	i, _, ok := ReadInt64(v.Data)
	return i, ok
}

// Int32OK returns v's int32 if v.Type is int32.
func (v Value) Int32OK() (int32, bool) {
	if v.Type != TypeInt32 {
		return 0, false
	}
	i, _, ok := ReadInt32(v.Data)
	return i, ok
}

// Int64OK returns v's int64 if v.Type is int64.
func (v Value) Int64OK() (int64, bool) {
	if v.Type != TypeInt64 {
		return 0, false
	}
	i, _, ok := ReadInt64(v.Data)
	return i, ok
}

// TimestampOK returns v's (t, i) timestamp pair if v.Type is timestamp. On
// the wire the increment is the low 4 bytes and the seconds-since-epoch the
// high 4 bytes of a little-endian uint64.
func (v Value) TimestampOK() (t, i uint32, ok bool) {
	if v.Type != TypeTimestamp || len(v.Data) < 8 {
		return 0, 0, false
	}
	inc := uint32(v.Data[0]) | uint32(v.Data[1])<<8 | uint32(v.Data[2])<<16 | uint32(v.Data[3])<<24
	sec := uint32(v.Data[4]) | uint32(v.Data[5])<<8 | uint32(v.Data[6])<<16 | uint32(v.Data[7])<<24
	return sec, inc, true
}

// Decimal128OK returns v's raw Decimal128 bits if v.Type is decimal128.
func (v Value) Decimal128OK() (Decimal128, bool) {
	if v.Type != TypeDecimal128 || len(v.Data) < 16 {
		return Decimal128{}, false
	}
	lo, _, _ := ReadInt64(v.Data)
	hi, _, _ := ReadInt64(v.Data[8:])
	return Decimal128{H: uint64(hi), L: uint64(lo)}, true
}

// RegexOK returns v's pattern and options if v.Type is regex.
func (v Value) RegexOK() (pattern, options string, ok bool) {
	if v.Type != TypeRegex {
		return "", "", false
	}
	i := bytes.IndexByte(v.Data, 0x00)
	if i < 0 {
		return "", "", false
	}
	j := bytes.IndexByte(v.Data[i+1:], 0x00)
	if j < 0 {
		return "", "", false
	}
	return string(v.Data[:i]), string(v.Data[i+1 : i+1+j]), true
}

// DBPointerOK returns v's namespace and ObjectID if v.Type is dbPointer.
func (v Value) DBPointerOK() (ns string, id ObjectID, ok bool) {
	if v.Type != TypeDBPointer {
		return "", ObjectID{}, false
	}
	s, rem, ok := ReadString(v.Data)
	if !ok {
		return "", ObjectID{}, false
	}
	oid, _, ok := ReadObjectID(rem)
	return s, oid, ok
}

// CodeWithScopeOK returns v's code string and raw scope document bytes if
// v.Type is codeWithScope.
func (v Value) CodeWithScopeOK() (code string, scope []byte, ok bool) {
	if v.Type != TypeCodeWithScope || len(v.Data) < 8 {
		return "", nil, false
	}
	s, rem, ok := ReadString(v.Data[4:])
	if !ok {
		return "", nil, false
	}
	doc, err := NewDocument(rem)
	if err != nil {
		return "", nil, false
	}
	return s, []byte(doc), true
}
