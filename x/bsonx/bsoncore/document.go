// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bsoncore implements the BSON read view and forward iterator: a
// zero-copy wrapper around a byte slice that validates its outer framing up
// front and decodes element values lazily as the caller iterates
// (spec.md §4.1, §4.2).
package bsoncore

import (
	"bytes"
	"fmt"
	"io"
)

// Document is a validated, read-only view over a BSON document's bytes. It
// does not own storage; its validity tracks the underlying slice exactly as
// spec.md §3 describes for the "read view". Document never copies the bytes
// handed to it.
type Document []byte

// NewDocument validates src as a BSON read view per spec.md §4.1 and
// returns a Document over its declared length. Excess bytes beyond the
// declared length are not part of the returned Document but remain
// addressable by the caller through the original slice.
func NewDocument(src []byte) (Document, error) {
	length, rem, ok := ReadLength(src)
	if !ok {
		return nil, ErrShortRead
	}
	if length < 5 {
		return nil, ErrInvalidHeader
	}
	if int(length) > len(src) {
		return nil, ErrShortRead
	}
	if src[length-1] != 0x00 {
		return nil, ErrInvalidTerminator
	}
	_ = rem
	return Document(src[:length]), nil
}

// NewDocumentFromReader reads exactly one BSON document's worth of bytes
// from r, validating the length prefix and trailing null as it goes.
func NewDocumentFromReader(r io.Reader) (Document, error) {
	buf, err := newBufferFromReader(r)
	if err != nil {
		return nil, err
	}
	return Document(buf), nil
}

// Len returns the document's declared length, i.e. the value of its 4-byte
// header, not necessarily len(d) if the caller sliced around it.
func (d Document) Len() int32 {
	l, _, _ := ReadLength(d)
	return l
}

// Empty reports whether d is the canonical 5-byte empty document.
func (d Document) Empty() bool { return len(d) == 5 }

// Validate walks every element in d, returning the first decode error
// encountered, or nil if the whole document decodes cleanly. Unlike
// Iterator, which surfaces errors lazily for callers that want to keep
// processing elements up to the point of failure, Validate exists for
// callers that just want a yes/no answer.
func (d Document) Validate() error {
	it, err := d.Iterator()
	if err != nil {
		return err
	}
	for it.Next() {
	}
	return it.Err()
}

// Iterator returns a forward iterator positioned before the first element
// of d. Call Next to advance it.
func (d Document) Iterator() (*Iterator, error) {
	if len(d) < 5 {
		return nil, ErrShortRead
	}
	return &Iterator{doc: d, offset: 4, started: false}, nil
}

// Elements decodes and returns every element of d as a slice. It stops and
// returns the partial slice plus the decode error on the first malformed
// element.
func (d Document) Elements() ([]Element, error) {
	it, err := d.Iterator()
	if err != nil {
		return nil, err
	}
	var elems []Element
	for it.Next() {
		elems = append(elems, it.Element())
	}
	return elems, it.Err()
}

// Lookup finds the element with the given key, descending through nested
// document/array keys if more than one key is given (e.g.
// Lookup("a", "b") looks up "b" inside the embedded document at "a"). It
// returns a zero Value and false if any component of the path is absent or
// the document is malformed before reaching it.
func (d Document) Lookup(keys ...string) (Value, bool) {
	if len(keys) == 0 {
		return Value{}, false
	}
	it, err := d.Iterator()
	if err != nil {
		return Value{}, false
	}
	for it.Next() {
		if it.Key() != keys[0] {
			continue
		}
		val := it.Value()
		if len(keys) == 1 {
			return val, true
		}
		sub, ok := val.DocumentOK()
		if !ok {
			sub, ok = val.ArrayOK()
		}
		if !ok {
			return Value{}, false
		}
		return Document(sub).Lookup(keys[1:]...)
	}
	return Value{}, false
}

// IndexErr returns the element at the given zero-based position among d's
// top-level elements.
func (d Document) IndexErr(index uint) (Element, error) {
	return indexErr(d, index)
}

// Index is like IndexErr but panics on error, mirroring the teacher
// package's Array.Index convention for call sites that have already
// validated the document.
func (d Document) Index(index uint) Element {
	elem, err := indexErr(d, index)
	if err != nil {
		panic(err)
	}
	return elem
}

func indexErr(doc []byte, index uint) (Element, error) {
	length, rem, ok := ReadLength(doc)
	if !ok {
		return nil, NewInsufficientBytesError(doc, rem)
	}
	if int(length) > len(doc) {
		return nil, lengthError("document", int(length), len(doc))
	}
	var current uint
	for {
		elem, r, ok := ReadElement(rem)
		if !ok {
			return nil, NewInsufficientBytesError(doc, rem)
		}
		if len(elem) == 0 {
			return nil, fmt.Errorf("bsoncore: index %d out of bounds", index)
		}
		if current == index {
			return elem, nil
		}
		current++
		rem = r
	}
}

// ReadElement reads a single element, including its type tag, key, and
// value bytes, from the front of src. ok is false if src starts with the
// terminal zero byte (no more elements) or is too short.
func ReadElement(src []byte) (Element, []byte, bool) {
	if len(src) < 1 {
		return nil, src, false
	}
	if src[0] == 0x00 {
		return nil, src, false
	}
	tag := Type(src[0])
	nul := bytes.IndexByte(src[1:], 0x00)
	if nul < 0 {
		return nil, src, false
	}
	keyEnd := 1 + nul + 1
	if keyEnd > len(src) {
		return nil, src, false
	}
	valSize, err := valueSize(tag, src[keyEnd:])
	if err != nil || keyEnd+valSize > len(src) {
		return nil, src, false
	}
	total := keyEnd + valSize
	return Element(src[:total]), src[total:], true
}

// String renders d as best-effort extended-JSON-ish text for debugging.
func (d Document) String() string {
	elems, _ := d.Elements()
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%s", e.Key(), e.Value().String())
	}
	b.WriteByte('}')
	return b.String()
}
