// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonmut

import "github.com/amongoc/amongoc-go/x/bsonx/bsoncore"

// Field is one key/type/value triple accepted by Build. Use the
// constructors below (Double, StringField, Int32, ...) rather than
// constructing a Field directly.
type Field struct {
	key   string
	typ   bsoncore.Type
	value []byte
}

// Build assembles a document from fields in order, funneling each one
// through the same splice primitive a live Mutator would use. It supplements
// the distilled spec with the declarative document-builder convenience the
// original amongoc sources offer over the raw mutator
// (docs/learn/bson/bson.example.cpp, include/bson/make.hpp).
func Build(fields ...Field) (bsoncore.Document, error) {
	m := New()
	for _, f := range fields {
		if err := m.insertElement(m.endPos(), f.typ, f.key, f.value); err != nil {
			return nil, err
		}
	}
	return m.Document(), nil
}

// Double constructs a double Field.
func Double(key string, v float64) Field {
	return Field{key, bsoncore.TypeDouble, bsoncore.AppendDouble(nil, v)}
}

// StringField constructs a UTF-8 string Field.
func StringField(key, v string) Field {
	return Field{key, bsoncore.TypeString, bsoncore.AppendString(nil, v)}
}

// Int32 constructs an int32 Field.
func Int32(key string, v int32) Field {
	return Field{key, bsoncore.TypeInt32, bsoncore.AppendInt32(nil, v)}
}

// Int64 constructs an int64 Field.
func Int64(key string, v int64) Field {
	return Field{key, bsoncore.TypeInt64, bsoncore.AppendInt64(nil, v)}
}

// Boolean constructs a boolean Field.
func Boolean(key string, v bool) Field {
	return Field{key, bsoncore.TypeBoolean, bsoncore.AppendBoolean(nil, v)}
}

// Null constructs a null Field.
func Null(key string) Field { return Field{key, bsoncore.TypeNull, nil} }

// DocumentField constructs an embedded-document Field from already-built
// document bytes (e.g. the result of a nested Build call).
func DocumentField(key string, doc bsoncore.Document) Field {
	return Field{key, bsoncore.TypeEmbeddedDocument, doc}
}

// ArrayField constructs an embedded-array Field from already-built array
// bytes.
func ArrayField(key string, arr bsoncore.Array) Field {
	return Field{key, bsoncore.TypeArray, arr}
}
