// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func buildTestDoc(t *testing.T) Document {
	t.Helper()
	return BuildDocument(nil, func(dst []byte) []byte {
		dst = AppendHeader(dst, TypeString, "name")
		dst = AppendString(dst, "widget")
		dst = AppendHeader(dst, TypeInt32, "qty")
		dst = AppendInt32(dst, 3)
		dst = AppendHeader(dst, TypeBoolean, "active")
		dst = AppendBoolean(dst, true)
		return dst
	})
}

func TestDocumentLookupRoundTrip(t *testing.T) {
	doc := buildTestDoc(t)
	require.NoError(t, doc.Validate())

	name, ok := doc.Lookup("name")
	require.True(t, ok)
	s, ok := name.StringValueOK()
	require.True(t, ok)
	require.Equal(t, "widget", s)

	qty, ok := doc.Lookup("qty")
	require.True(t, ok)
	i, ok := qty.Int32OK()
	require.True(t, ok)
	require.EqualValues(t, 3, i)
}

func TestDocumentElementsPreservesOrder(t *testing.T) {
	doc := buildTestDoc(t)
	elems, err := doc.Elements()
	require.NoError(t, err)

	got := make([]string, len(elems))
	for i, e := range elems {
		got[i] = e.Key()
	}
	want := []string{"name", "qty", "active"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("element order mismatch (-want +got):\n%s", diff)
	}
}

func TestNewDocumentRejectsTruncatedBytes(t *testing.T) {
	doc := buildTestDoc(t)
	_, err := NewDocument(doc[:len(doc)-3])
	require.Error(t, err)
}

func TestNewDocumentRoundTripsThroughBytes(t *testing.T) {
	original := buildTestDoc(t)
	reparsed, err := NewDocument([]byte(original))
	require.NoError(t, err)

	wantElems, err := original.Elements()
	require.NoError(t, err)
	gotElems, err := reparsed.Elements()
	require.NoError(t, err)

	if diff := cmp.Diff(wantElems, gotElems); diff != "" {
		t.Fatalf("round-tripped document mismatch (-want +got):\n%s", diff)
	}
}

func TestIteratorWalksAllElements(t *testing.T) {
	doc := buildTestDoc(t)
	it, err := doc.Iterator()
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, it.Key())
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"name", "qty", "active"}, keys)
}

func TestFindReturnsOffsetOfMatchingElement(t *testing.T) {
	doc := buildTestDoc(t)
	it, ok := Find(doc, "qty")
	require.True(t, ok)
	require.NoError(t, it.Err())
	require.Equal(t, "qty", it.Key())
	// 4-byte header + "name" element (1 tag + 5 key + 11 string value).
	require.Equal(t, 21, it.Offset())
}

func TestFindReturnsFalseForMissingKey(t *testing.T) {
	doc := buildTestDoc(t)
	_, ok := Find(doc, "missing")
	require.False(t, ok)
}

func TestArrayValuesRoundTrip(t *testing.T) {
	arr := Array(BuildDocument(nil, func(dst []byte) []byte {
		dst = AppendHeader(dst, TypeInt32, "0")
		dst = AppendInt32(dst, 10)
		dst = AppendHeader(dst, TypeInt32, "1")
		dst = AppendInt32(dst, 20)
		return dst
	}))
	require.NoError(t, arr.Validate())

	values, err := arr.Values()
	require.NoError(t, err)
	require.Len(t, values, 2)

	got := make([]int32, len(values))
	for i, v := range values {
		n, ok := v.Int32OK()
		require.True(t, ok)
		got[i] = n
	}
	if diff := cmp.Diff([]int32{10, 20}, got); diff != "" {
		t.Fatalf("array values mismatch (-want +got):\n%s", diff)
	}
}
