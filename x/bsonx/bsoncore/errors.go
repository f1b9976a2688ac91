// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import "fmt"

// ErrorKind discriminates the reasons a read view, iterator, or element can
// fail to decode. Iteration errors are lazy: an Iterator carries its
// ErrorKind rather than aborting, so a caller can distinguish "ran out of
// elements" from "hit malformed bytes" after the fact (spec.md §4.2).
type ErrorKind int

// The full set of decode failure kinds.
const (
	ErrKindNone ErrorKind = iota
	ErrKindShortRead
	ErrKindInvalidHeader
	ErrKindInvalidTerminator
	ErrKindInvalidType
	ErrKindInvalidLength
	ErrKindInvalidRegex
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindShortRead:
		return "short read"
	case ErrKindInvalidHeader:
		return "invalid header"
	case ErrKindInvalidTerminator:
		return "invalid terminator"
	case ErrKindInvalidType:
		return "invalid type"
	case ErrKindInvalidLength:
		return "invalid length"
	case ErrKindInvalidRegex:
		return "invalid regex"
	default:
		return "no error"
	}
}

// DecodeError is the error type returned or carried by the view and iterator
// decoders. It wraps an ErrorKind with the byte offset at which decoding
// failed.
type DecodeError struct {
	Kind   ErrorKind
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bsoncore: %s at offset %d", e.Kind, e.Offset)
}

func newDecodeError(kind ErrorKind, offset int) *DecodeError {
	return &DecodeError{Kind: kind, Offset: offset}
}

// Sentinel errors returned by Document-level and Array-level validation,
// kept distinct from the lazy per-element DecodeError so callers that only
// care about framing validity don't need to inspect an iterator.
var (
	ErrShortRead        = newDecodeError(ErrKindShortRead, 0)
	ErrInvalidHeader    = newDecodeError(ErrKindInvalidHeader, 0)
	ErrInvalidTerminator = newDecodeError(ErrKindInvalidTerminator, 0)
	ErrMissingNull      = fmt.Errorf("bsoncore: missing null terminator")
)

// InsufficientBytesError is returned when a buffer is too short to contain
// the header, element, or value being read out of it.
type InsufficientBytesError struct {
	Src      []byte
	Consumed []byte
}

func (e InsufficientBytesError) Error() string {
	return fmt.Sprintf("bsoncore: insufficient bytes to read value, consumed %d of %d bytes", len(e.Consumed), len(e.Src))
}

// NewInsufficientBytesError constructs an InsufficientBytesError for the
// source buffer src given the unconsumed remainder rem.
func NewInsufficientBytesError(src, rem []byte) InsufficientBytesError {
	return InsufficientBytesError{Src: src, Consumed: src[:len(src)-len(rem)]}
}

// LengthError is returned when a length-prefixed region (document, array,
// string, binary, ...) declares a length that does not fit within the bytes
// actually available.
type LengthError struct {
	Name     string
	Length   int
	Reported int
}

func (e LengthError) Error() string {
	return fmt.Sprintf("bsoncore: length read for %s is invalid: length=%d available=%d", e.Name, e.Length, e.Reported)
}

func lengthError(name string, length int, available int) error {
	return LengthError{Name: name, Length: length, Reported: available}
}

// ElementTypeError is returned by a typed Value accessor (e.g. Int32) when
// the value is not of the requested BSON type.
type ElementTypeError struct {
	Method string
	Type   Type
}

func (e ElementTypeError) Error() string {
	return fmt.Sprintf("bsoncore: call to %s on type %s", e.Method, e.Type)
}
