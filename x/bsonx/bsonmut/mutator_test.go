// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonmut

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
)

func TestBuildProducesLookupableFields(t *testing.T) {
	doc, err := Build(
		StringField("name", "widget"),
		Int32("qty", 3),
		Boolean("active", true),
	)
	require.NoError(t, err)

	name, ok := doc.Lookup("name")
	require.True(t, ok)
	s, ok := name.StringValueOK()
	require.True(t, ok)
	if s != "widget" {
		t.Fatalf("name = %q, want %q\nbuffer dump:\n%s", s, "widget", spew.Sdump([]byte(doc)))
	}
}

func TestAppendStringThenAppendInt32RoundTrip(t *testing.T) {
	m := New()
	require.NoError(t, m.AppendString("a", "x"))
	require.NoError(t, m.AppendInt32("b", 7))
	doc := m.Document()

	a, ok := doc.Lookup("a")
	require.True(t, ok)
	av, _ := a.StringValueOK()
	b, ok := doc.Lookup("b")
	require.True(t, ok)
	bv, _ := b.Int32OK()

	want := struct {
		A string
		B int32
	}{"x", 7}
	got := struct {
		A string
		B int32
	}{av, bv}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("document fields mismatch (-want +got):\n%s", diff)
	}
}

func findOffset(t *testing.T, m *Mutator, key string) int {
	t.Helper()
	it, ok := bsoncore.Find(m.Document(), key)
	require.NoError(t, it.Err())
	require.True(t, ok)
	return it.Offset()
}

func TestEraseRemovesElement(t *testing.T) {
	m := New()
	require.NoError(t, m.AppendString("keep", "1"))
	require.NoError(t, m.AppendString("drop", "2"))

	require.NoError(t, m.Erase(findOffset(t, m, "drop")))
	doc := m.Document()
	_, ok := doc.Lookup("drop")
	require.False(t, ok)
	_, ok = doc.Lookup("keep")
	require.True(t, ok)
}

func TestRenameElement(t *testing.T) {
	m := New()
	require.NoError(t, m.AppendString("old", "v"))
	require.NoError(t, m.Rename(findOffset(t, m, "old"), "new"))

	doc := m.Document()
	_, ok := doc.Lookup("old")
	require.False(t, ok)
	v, ok := doc.Lookup("new")
	require.True(t, ok)
	s, _ := v.StringValueOK()
	require.Equal(t, "v", s)
}

func TestAppendDocumentNestsChild(t *testing.T) {
	m := New()
	child, err := m.AppendDocument("nested")
	require.NoError(t, err)
	require.NoError(t, child.AppendInt32("x", 1))

	doc := m.Document()
	sub, ok := doc.Lookup("nested", "x")
	require.True(t, ok)
	v, ok := sub.Int32OK()
	require.True(t, ok)
	require.EqualValues(t, 1, v)
}

func TestRelabelArrayElementsAtRenumbersFromStartIndex(t *testing.T) {
	arr := New()
	require.NoError(t, arr.AppendString("0", "a"))
	require.NoError(t, arr.AppendString("1", "b"))
	require.NoError(t, arr.AppendString("2", "c"))

	require.NoError(t, arr.RelabelArrayElementsAt(findOffset(t, arr, "1"), 5))

	doc := arr.Document()
	keys := make([]string, 0, 3)
	it, err := doc.Iterator()
	require.NoError(t, err)
	for it.Next() {
		keys = append(keys, it.Key())
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"0", "5", "6"}, keys)
}

func TestAppendDocumentRawAndArrayRaw(t *testing.T) {
	inner, err := Build(Int32("v", 9))
	require.NoError(t, err)

	m := New()
	require.NoError(t, m.AppendDocumentRaw("doc", inner))
	require.NoError(t, m.AppendArrayRaw("arr", bsoncore.Array(bsoncore.EmptyDocument())))

	doc := m.Document()
	v, ok := doc.Lookup("doc", "v")
	require.True(t, ok)
	iv, ok := v.Int32OK()
	require.True(t, ok)
	require.EqualValues(t, 9, iv)
}
