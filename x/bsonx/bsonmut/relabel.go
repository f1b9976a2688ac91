// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonmut

import (
	"strconv"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
)

// RelabelArrayElements renumbers every top-level element of m (which should
// hold an array) to "0", "1", "2", ... in order, so the array's keys match
// its logical indices after an insert or erase has disturbed them (spec.md
// §4.3 "Array relabeling").
func (m *Mutator) RelabelArrayElements() error {
	return m.RelabelArrayElementsAt(4, 0)
}

// RelabelArrayElementsAt renumbers every element starting at local offset
// pos through the end of the document, beginning the numbering at
// startIndex. This resolves spec.md §9's open question by preserving the
// observed behavior: the renumbering applies to the suffix starting at the
// given position, not the whole array, and the first renumbered key is
// startIndex rather than always 0.
func (m *Mutator) RelabelArrayElementsAt(pos, startIndex int) error {
	idx := startIndex
	for {
		doc := m.data()
		if pos >= int(int32FromLE(doc))-1 {
			return nil
		}
		elem, _, ok := bsoncore.ReadElement(doc[pos:])
		if !ok {
			return ErrSplicePosition
		}
		_ = elem

		var scratch [12]byte
		newKey := strconv.AppendInt(scratch[:0], int64(idx), 10)
		if err := m.Rename(pos, string(newKey)); err != nil {
			return err
		}

		doc = m.data()
		elem, _, ok = bsoncore.ReadElement(doc[pos:])
		if !ok {
			return ErrSplicePosition
		}
		pos += len(elem)
		idx++
	}
}

func int32FromLE(b []byte) int32 {
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}
