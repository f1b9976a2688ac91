// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import "bytes"

// Iterator is a forward, lazily-validating cursor over a Document's
// top-level elements (spec.md §3 "Iterator", §4.2 "Iterator advancement").
//
// An Iterator is always in exactly one of three states: positioned on a
// live element, at the terminal (drained) position, or carrying a decode
// error. Advancing past an error or the terminal position is a no-op;
// callers distinguish "drained cleanly" from "hit malformed bytes" by
// calling Err after Next returns false.
type Iterator struct {
	doc     Document
	offset  int
	keyLen  int
	valSize int
	started bool
	err     error
}

// Next advances the iterator to the next element and reports whether that
// element exists. It returns false both when iteration is exhausted and
// when a decode error occurred; call Err to distinguish the two.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.started {
		it.offset += it.consumed()
	}
	it.started = true
	return it.decodeAt(it.offset)
}

// consumed returns the number of bytes occupied by the element currently
// positioned on: 1 (tag) + key + 1 (key terminator) + value bytes.
func (it *Iterator) consumed() int {
	if it.terminal() {
		return 0
	}
	return 1 + it.keyLen + 1 + it.valSize
}

func (it *Iterator) terminal() bool {
	return it.offset < len(it.doc) && it.doc[it.offset] == 0x00 && it.started
}

// decodeAt positions the iterator at byte offset pos within the document,
// implementing the decode described in spec.md §4.2.
func (it *Iterator) decodeAt(pos int) bool {
	maxlen := len(it.doc) - pos
	if maxlen <= 0 {
		it.err = newDecodeError(ErrKindShortRead, pos)
		return false
	}
	if maxlen == 1 {
		if it.doc[pos] != 0x00 {
			it.err = newDecodeError(ErrKindInvalidTerminator, pos)
			return false
		}
		it.keyLen = 0
		it.valSize = 0
		return false // terminal position reached; Next returns false, Err is nil
	}

	tag := Type(it.doc[pos])
	if !tag.IsValid() {
		it.err = newDecodeError(ErrKindInvalidType, pos)
		return false
	}
	keyStart := pos + 1
	end := pos + maxlen
	nul := bytes.IndexByte(it.doc[keyStart:end], 0x00)
	if nul < 0 {
		it.err = newDecodeError(ErrKindInvalidTerminator, pos)
		return false
	}
	keyLen := nul
	valOff := keyStart + keyLen + 1
	valMaxLen := end - valOff
	if valMaxLen <= 0 {
		it.err = newDecodeError(ErrKindShortRead, pos)
		return false
	}
	size, err := valueSize(tag, it.doc[valOff:end])
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			err = newDecodeError(de.Kind, pos)
		}
		it.err = err
		return false
	}
	// Leave room for the document's own trailing zero byte.
	if size > valMaxLen-1 {
		it.err = newDecodeError(ErrKindInvalidLength, pos)
		return false
	}
	it.keyLen = keyLen
	it.valSize = size
	return true
}

// Err returns the decode error that stopped iteration, or nil if iteration
// is simply exhausted (or hasn't run yet).
func (it *Iterator) Err() error { return it.err }

// Key returns the current element's key.
func (it *Iterator) Key() string {
	return string(it.doc[it.offset+1 : it.offset+1+it.keyLen])
}

// Type returns the current element's type tag.
func (it *Iterator) Type() Type { return Type(it.doc[it.offset]) }

// Value decodes and returns the current element's value.
func (it *Iterator) Value() Value {
	valOff := it.offset + 1 + it.keyLen + 1
	return Value{Type: it.Type(), Data: it.doc[valOff : valOff+it.valSize]}
}

// Element returns the current element's raw bytes.
func (it *Iterator) Element() Element {
	return Element(it.doc[it.offset : it.offset+it.consumed()])
}

// Offset returns the byte offset of the current element's tag within the
// owning document, for callers (like the mutator) that need to locate a
// position found via iteration.
func (it *Iterator) Offset() int { return it.offset }

// ForEach calls fn for every element in order, stopping at the first
// decode error or the first time fn returns false. It returns the decode
// error that stopped iteration, or nil.
func ForEach(d Document, fn func(key string, val Value) bool) error {
	it, err := d.Iterator()
	if err != nil {
		return err
	}
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Err()
}

// Find returns the iterator positioned on the first element whose key
// equals key, and true, or a drained/errored iterator and false. If d is
// shorter than 5 bytes the returned iterator is nil.
func Find(d Document, key string) (*Iterator, bool) {
	it, err := d.Iterator()
	if err != nil {
		return it, false
	}
	for it.Next() {
		if it.keyEq(key) {
			return it, true
		}
	}
	return it, false
}

func (it *Iterator) keyEq(key string) bool {
	if it.keyLen != len(key) {
		return false
	}
	return it.Key() == key
}
