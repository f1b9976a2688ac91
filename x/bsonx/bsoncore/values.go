// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

// values decodes every top-level element of an array's bytes into a Value
// slice, in index order, stopping (and returning what it has plus an error)
// at the first malformed element.
func values(a Array) ([]Value, error) {
	length, rem, ok := ReadLength(a)
	if !ok {
		return nil, NewInsufficientBytesError(a, rem)
	}
	if int(length) > len(a) {
		return nil, lengthError("array", int(length), len(a))
	}
	var out []Value
	for {
		elem, r, ok := ReadElement(rem)
		if !ok {
			if len(rem) > 0 && rem[0] == 0x00 {
				return out, nil
			}
			return out, NewInsufficientBytesError(a, rem)
		}
		val, err := elem.ValueErr()
		if err != nil {
			return out, err
		}
		out = append(out, val)
		rem = r
	}
}

// Iterator returns a forward iterator over a's elements, reusing
// Document's decode logic since a BSON array shares a document's framing.
func (a Array) Iterator() (*Iterator, error) { return Document(a).Iterator() }

// Elements decodes and returns every element of a.
func (a Array) Elements() ([]Element, error) { return Document(a).Elements() }
