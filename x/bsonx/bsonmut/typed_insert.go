// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsonmut

import "github.com/amongoc/amongoc-go/x/bsonx/bsoncore"

// AppendDouble inserts a double element at the end of the document.
func (m *Mutator) AppendDouble(key string, v float64) error {
	return m.insertElement(m.endPos(), bsoncore.TypeDouble, key, bsoncore.AppendDouble(nil, v))
}

// AppendString inserts a UTF-8 string element at the end of the document.
func (m *Mutator) AppendString(key, v string) error {
	return m.insertElement(m.endPos(), bsoncore.TypeString, key, bsoncore.AppendString(nil, v))
}

// AppendInt32 inserts an int32 element at the end of the document.
func (m *Mutator) AppendInt32(key string, v int32) error {
	return m.insertElement(m.endPos(), bsoncore.TypeInt32, key, bsoncore.AppendInt32(nil, v))
}

// AppendInt64 inserts an int64 element at the end of the document.
func (m *Mutator) AppendInt64(key string, v int64) error {
	return m.insertElement(m.endPos(), bsoncore.TypeInt64, key, bsoncore.AppendInt64(nil, v))
}

// AppendBoolean inserts a boolean element at the end of the document.
func (m *Mutator) AppendBoolean(key string, v bool) error {
	return m.insertElement(m.endPos(), bsoncore.TypeBoolean, key, bsoncore.AppendBoolean(nil, v))
}

// AppendNull inserts a null element at the end of the document.
func (m *Mutator) AppendNull(key string) error {
	return m.insertElement(m.endPos(), bsoncore.TypeNull, key, nil)
}

// AppendUndefined inserts an undefined element at the end of the document.
func (m *Mutator) AppendUndefined(key string) error {
	return m.insertElement(m.endPos(), bsoncore.TypeUndefined, key, nil)
}

// AppendMinKey inserts a minkey element at the end of the document.
func (m *Mutator) AppendMinKey(key string) error {
	return m.insertElement(m.endPos(), bsoncore.TypeMinKey, key, nil)
}

// AppendMaxKey inserts a maxkey element at the end of the document.
func (m *Mutator) AppendMaxKey(key string) error {
	return m.insertElement(m.endPos(), bsoncore.TypeMaxKey, key, nil)
}

// AppendObjectID inserts an ObjectID element at the end of the document.
func (m *Mutator) AppendObjectID(key string, id bsoncore.ObjectID) error {
	return m.insertElement(m.endPos(), bsoncore.TypeObjectID, key, bsoncore.AppendObjectID(nil, id))
}

// AppendDateTime inserts a UTC datetime element (milliseconds since the
// Unix epoch) at the end of the document.
func (m *Mutator) AppendDateTime(key string, millis int64) error {
	return m.insertElement(m.endPos(), bsoncore.TypeDateTime, key, bsoncore.AppendInt64(nil, millis))
}

// AppendTimestamp inserts a timestamp element at the end of the document.
func (m *Mutator) AppendTimestamp(key string, seconds, increment uint32) error {
	v := make([]byte, 0, 8)
	v = bsoncore.AppendInt32(v, int32(increment))
	v = bsoncore.AppendInt32(v, int32(seconds))
	return m.insertElement(m.endPos(), bsoncore.TypeTimestamp, key, v)
}

// AppendDecimal128 inserts a decimal128 element at the end of the document.
func (m *Mutator) AppendDecimal128(key string, d bsoncore.Decimal128) error {
	v := make([]byte, 0, 16)
	v = bsoncore.AppendInt64(v, int64(d.L))
	v = bsoncore.AppendInt64(v, int64(d.H))
	return m.insertElement(m.endPos(), bsoncore.TypeDecimal128, key, v)
}

// AppendBinary inserts a binary element at the end of the document.
func (m *Mutator) AppendBinary(key string, subtype byte, data []byte) error {
	v := bsoncore.AppendInt32(nil, int32(len(data)))
	v = append(v, subtype)
	v = append(v, data...)
	return m.insertElement(m.endPos(), bsoncore.TypeBinary, key, v)
}

// AppendRegex inserts a regex element at the end of the document. pattern
// and options must not themselves contain embedded null bytes.
func (m *Mutator) AppendRegex(key, pattern, options string) error {
	v := append([]byte(pattern), 0x00)
	v = append(v, options...)
	v = append(v, 0x00)
	return m.insertElement(m.endPos(), bsoncore.TypeRegex, key, v)
}

// AppendDBPointer inserts a dbpointer element at the end of the document.
func (m *Mutator) AppendDBPointer(key, ns string, id bsoncore.ObjectID) error {
	v := bsoncore.AppendString(nil, ns)
	v = bsoncore.AppendObjectID(v, id)
	return m.insertElement(m.endPos(), bsoncore.TypeDBPointer, key, v)
}

// AppendCodeWithScope inserts a code-with-scope element at the end of the
// document.
func (m *Mutator) AppendCodeWithScope(key, code string, scope bsoncore.Document) error {
	inner := bsoncore.AppendString(nil, code)
	inner = append(inner, scope...)
	v := bsoncore.AppendInt32(nil, int32(len(inner)+4))
	v = append(v, inner...)
	return m.insertElement(m.endPos(), bsoncore.TypeCodeWithScope, key, v)
}

// AppendDocument inserts an empty embedded document element at the end of
// the document and returns a child mutator positioned on it.
func (m *Mutator) AppendDocument(key string) (*Mutator, error) {
	return m.appendNested(key, bsoncore.TypeEmbeddedDocument)
}

// AppendArray inserts an empty embedded array element at the end of the
// document and returns a child mutator positioned on it.
func (m *Mutator) AppendArray(key string) (*Mutator, error) {
	return m.appendNested(key, bsoncore.TypeArray)
}

func (m *Mutator) appendNested(key string, t bsoncore.Type) (*Mutator, error) {
	pos := m.endPos()
	if err := m.insertElement(pos, t, key, bsoncore.EmptyDocument()); err != nil {
		return nil, err
	}
	return m.Child(pos)
}

// AppendDocumentRaw inserts a pre-built document's raw bytes as an embedded
// document element at the end of the document.
func (m *Mutator) AppendDocumentRaw(key string, doc bsoncore.Document) error {
	return m.insertElement(m.endPos(), bsoncore.TypeEmbeddedDocument, key, doc)
}

// AppendArrayRaw inserts a pre-built array's raw bytes as an embedded array
// element at the end of the document.
func (m *Mutator) AppendArrayRaw(key string, arr bsoncore.Array) error {
	return m.insertElement(m.endPos(), bsoncore.TypeArray, key, arr)
}
