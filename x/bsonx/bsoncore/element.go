// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"bytes"
	"fmt"
)

// Element is the raw encoded bytes of a single document element: a type
// tag, a null-terminated key, and the value bytes, with no trailing data.
type Element []byte

// Type returns the element's type tag.
func (e Element) Type() Type {
	if len(e) == 0 {
		return 0
	}
	return Type(e[0])
}

// KeyBytes returns the raw key bytes, excluding the null terminator.
func (e Element) KeyBytes() []byte {
	if len(e) < 2 {
		return nil
	}
	nul := bytes.IndexByte(e[1:], 0x00)
	if nul < 0 {
		return nil
	}
	return e[1 : 1+nul]
}

// Key returns the element's key as a string.
func (e Element) Key() string { return string(e.KeyBytes()) }

// valueBytes returns the raw, undecoded value bytes that follow the key.
func (e Element) valueBytes() []byte {
	key := e.KeyBytes()
	return e[1+len(key)+1:]
}

// Value decodes and returns the element's value, panicking if the element
// itself is malformed (which should not happen for an Element produced by
// ReadElement/Iterator, since those already validated it).
func (e Element) Value() Value {
	v, err := e.ValueErr()
	if err != nil {
		panic(err)
	}
	return v
}

// ValueErr decodes and returns the element's value.
func (e Element) ValueErr() (Value, error) {
	if len(e) < 2 {
		return Value{}, NewInsufficientBytesError(e, nil)
	}
	return Value{Type: e.Type(), Data: e.valueBytes()}, nil
}

// Validate confirms the element's value decodes cleanly and, for document
// and array values, recursively validates them.
func (e Element) Validate() error {
	val, err := e.ValueErr()
	if err != nil {
		return err
	}
	return val.Validate()
}

// DebugString renders the element including its type tag for debugging.
func (e Element) DebugString() string {
	val, err := e.ValueErr()
	if err != nil {
		return fmt.Sprintf("<malformed:%v>", err)
	}
	return fmt.Sprintf("%s: %s(%s)", e.Key(), e.Type(), val.String())
}

// String renders the element as "key: value" extended-JSON-ish text.
func (e Element) String() string {
	val, err := e.ValueErr()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%q: %s", e.Key(), val.String())
}

// KeyEq reports whether e's key equals key, comparing lengths before bytes
// per spec.md §4.2 ("key_eq compares lengths first, then byte-wise").
func (e Element) KeyEq(key string) bool {
	k := e.KeyBytes()
	if len(k) != len(key) {
		return false
	}
	return string(k) == key
}
