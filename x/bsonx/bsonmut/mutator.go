// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bsonmut implements the in-place BSON mutator: a single splice
// primitive that every structural document change funnels through, plus the
// typed insert/erase/rename helpers built on top of it (spec.md §4.3).
//
// A root Mutator owns a growable buffer. A child Mutator is a non-owning
// view into an ancestor's buffer, located by an absolute byte offset rather
// than a raw pointer: because Go slices carry their own bounds and offsets
// survive reallocation (unlike the C pointers the original splice engine
// has to rebase), a child never needs to "rebase" after its parent grows —
// only its *own* offset can go stale, and only if some other mutator edits
// the shared buffer at a position before it without going through this
// child. Callers that hold a Mutator or bsoncore.Iterator into a document
// must re-acquire it after any edit performed through a different handle,
// exactly as the source material warns (spec.md §4.3, "a child mutator must
// not outlive its parent").
package bsonmut

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
)

// ErrSpliceOverflow is returned by Splice when the resulting document would
// exceed the maximum representable BSON length.
var ErrSpliceOverflow = errors.New("bsonmut: splice would overflow document length")

// ErrSplicePosition is returned when a splice position is not strictly
// between the 4-byte length header and the trailing zero byte.
var ErrSplicePosition = errors.New("bsonmut: splice position out of range")

// ErrNotDocumentOrArray is returned when a child mutator is requested at an
// element that is not a document or array.
var ErrNotDocumentOrArray = errors.New("bsonmut: element is not a document or array")

const maxDocumentLength = 1<<31 - 1

// fillByte is written into newly-opened regions that the caller is expected
// to overwrite before exposing the document; its value is implementation
// defined per spec.md §9 and must never be observed by a caller.
const fillByte = 'X'

// rootBuffer is the single growable allocation shared by a root Mutator and
// every Mutator descended from it.
type rootBuffer struct {
	buf []byte
}

// Mutator is either a root mutator, which owns a growable buffer, or a
// child mutator, which is a view into an ancestor's buffer at a fixed
// offset (spec.md §3 "Mutator"). The zero Mutator is not usable; construct
// one with New or NewFromDocument, or obtain a child via Child/AppendDocument
// /AppendArray.
type Mutator struct {
	root   *rootBuffer
	parent *Mutator
	offset int // absolute byte offset of this document's header within root.buf
}

// New returns a root mutator over a fresh empty document {}.
func New() *Mutator {
	return &Mutator{root: &rootBuffer{buf: append([]byte(nil), bsoncore.EmptyDocument()...)}}
}

// NewFromDocument returns a root mutator whose initial content is a copy of
// doc. The mutator never aliases doc's backing array.
func NewFromDocument(doc bsoncore.Document) *Mutator {
	buf := make([]byte, len(doc), len(doc)+512)
	copy(buf, doc)
	return &Mutator{root: &rootBuffer{buf: buf}}
}

// IsRoot reports whether m owns its buffer directly, as opposed to being a
// child view into an ancestor's buffer.
func (m *Mutator) IsRoot() bool { return m.parent == nil }

// Parent returns m's parent mutator, or nil if m is a root mutator.
func (m *Mutator) Parent() *Mutator { return m.parent }

// data returns the remainder of the shared buffer starting at this
// mutator's own document header.
func (m *Mutator) data() []byte { return m.root.buf[m.offset:] }

// Len returns the mutator's current declared document length (the value of
// its own 4-byte header).
func (m *Mutator) Len() int32 {
	return int32(binary.LittleEndian.Uint32(m.data()))
}

// Document returns a read-only bsoncore.Document view over the mutator's
// current bytes. The returned Document aliases the mutator's buffer: it is
// only valid until the next mutation.
func (m *Mutator) Document() bsoncore.Document {
	l := m.Len()
	return bsoncore.Document(m.data()[:l])
}

// endPos returns the local offset of the trailing zero byte, i.e. the
// position at which a new element is inserted to append it.
func (m *Mutator) endPos() int { return int(m.Len()) - 1 }

// Splice is the single primitive every structural change in this package
// goes through (spec.md §4.3). pos is a byte offset local to this
// mutator's own document (0 is this document's own length header), and
// must satisfy 4 <= pos <= len-1 (the trailing zero's own position is a
// valid splice point, used to append). deleteCount bytes starting at pos
// are removed; then either src (if non-nil, whose length must equal
// insertCount) is copied in, or insertCount fillByte bytes are written, as
// a placeholder the caller must overwrite before exposing the document.
//
// src must not alias m's buffer; callers splicing a range from one document
// into another must pre-copy the source range first (see MoveRange).
func (m *Mutator) Splice(pos, deleteCount, insertCount int, src []byte) error {
	if src != nil && len(src) != insertCount {
		return errors.New("bsonmut: len(src) must equal insertCount")
	}
	length := int(m.Len())
	if pos < 4 || pos > length-1 {
		return ErrSplicePosition
	}
	if deleteCount < 0 || pos+deleteCount > length-1 {
		return ErrSplicePosition
	}
	delta := insertCount - deleteCount
	newLen := length + delta
	if newLen < 5 || newLen > maxDocumentLength {
		return ErrSpliceOverflow
	}

	absPos := m.offset + pos
	m.root.buf = spliceBytes(m.root.buf, absPos, deleteCount, insertCount, src)

	for cur := m; cur != nil; cur = cur.parent {
		hdr := m.root.buf[cur.offset : cur.offset+4]
		old := int32(binary.LittleEndian.Uint32(hdr))
		binary.LittleEndian.PutUint32(hdr, uint32(old+int32(delta)))
	}
	return nil
}

// spliceBytes performs the actual byte-level insert/delete/overwrite on buf
// at absolute position pos, growing with slack when a reallocation is
// needed (spec.md §4.3, "reallocate with growth margin >= 512 bytes").
func spliceBytes(buf []byte, pos, deleteCount, insertCount int, src []byte) []byte {
	tailStart := pos + deleteCount
	tail := append([]byte(nil), buf[tailStart:]...)
	newLen := pos + insertCount + len(tail)

	if cap(buf) < newLen {
		grown := make([]byte, newLen, newLen+512)
		copy(grown, buf[:pos])
		buf = grown
	} else {
		buf = buf[:newLen]
	}

	if src != nil {
		copy(buf[pos:pos+insertCount], src)
	} else {
		region := buf[pos : pos+insertCount]
		for i := range region {
			region[i] = fillByte
		}
	}
	copy(buf[pos+insertCount:], tail)
	return buf
}

// sanitizeKey truncates key at its first embedded null byte, since BSON
// keys cannot contain one (spec.md §4.3: "keys may not contain zero
// bytes").
func sanitizeKey(key string) string {
	if i := strings.IndexByte(key, 0x00); i >= 0 {
		return key[:i]
	}
	return key
}

// insertElement is the single funnel every typed insert uses: it builds the
// tag+key+value bytes and splices them in as one unit (spec.md §4.3 "Typed
// inserts"). Unlike the fill-then-overwrite two-step the source material
// uses to avoid a temporary allocation, building the element bytes first
// and splicing them in directly is the idiomatic translation once a
// temporary []byte is cheap, which it is in Go.
func (m *Mutator) insertElement(pos int, t bsoncore.Type, key string, value []byte) error {
	key = sanitizeKey(key)
	elem := bsoncore.AppendHeader(make([]byte, 0, 1+len(key)+1+len(value)), t, key)
	elem = append(elem, value...)
	return m.Splice(pos, 0, len(elem), elem)
}

// Erase removes the element whose tag byte sits at local offset pos.
func (m *Mutator) Erase(pos int) error {
	elem, _, ok := bsoncore.ReadElement(m.data()[pos:])
	if !ok {
		return ErrSplicePosition
	}
	return m.Splice(pos, len(elem), 0, nil)
}

// Rename replaces the key of the element at local offset pos with newKey,
// preserving its value (spec.md §4.3 "Key renaming").
func (m *Mutator) Rename(pos int, newKey string) error {
	doc := m.data()
	if pos < 0 || pos >= len(doc) {
		return ErrSplicePosition
	}
	keyStart := pos + 1
	nul := indexByte(doc[keyStart:], 0x00)
	if nul < 0 {
		return ErrSplicePosition
	}
	newKey = sanitizeKey(newKey)
	return m.Splice(keyStart, nul, len(newKey), []byte(newKey))
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Child returns a child mutator for the document or array element whose
// tag byte sits at local offset pos (spec.md §4.3 "Child mutator
// acquisition"). The returned mutator shares m's buffer; it must not be
// used after m (or any ancestor) splices at or before pos again without
// re-acquiring it.
func (m *Mutator) Child(pos int) (*Mutator, error) {
	doc := m.data()
	if pos < 4 || pos >= len(doc) {
		return nil, ErrSplicePosition
	}
	tag := bsoncore.Type(doc[pos])
	if tag != bsoncore.TypeEmbeddedDocument && tag != bsoncore.TypeArray {
		return nil, ErrNotDocumentOrArray
	}
	keyStart := pos + 1
	nul := indexByte(doc[keyStart:], 0x00)
	if nul < 0 {
		return nil, ErrSplicePosition
	}
	skip := 1 + nul + 1
	return &Mutator{root: m.root, parent: m, offset: m.offset + pos + skip}, nil
}

// FindChild locates the top-level element with the given key and returns a
// child mutator for it, provided it is a document or array.
func (m *Mutator) FindChild(key string) (*Mutator, bool, error) {
	it, ok := bsoncore.Find(m.Document(), key)
	if it.Err() != nil {
		return nil, false, it.Err()
	}
	if !ok {
		return nil, false, nil
	}
	child, err := m.Child(it.Offset())
	if err != nil {
		return nil, false, err
	}
	return child, true, nil
}

// MoveRange copies the byte range [start,end) of src's current document
// into dst at local offset pos, pre-copying the bytes out first so the
// operation is well defined even when src and dst are the same mutator
// (spec.md §4.3 "Disjoint range splice").
func MoveRange(dst *Mutator, pos int, src *Mutator, start, end int) error {
	segment := append([]byte(nil), src.data()[start:end]...)
	return dst.Splice(pos, 0, len(segment), segment)
}
