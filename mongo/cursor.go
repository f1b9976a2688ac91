// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"fmt"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
	"github.com/amongoc/amongoc-go/x/bsonx/bsonmut"
	"github.com/amongoc/amongoc-go/x/mongo/driver/topology"
)

// Cursor iterates the documents a find/getMore round trip pair produces.
// It holds at most one batch in memory at a time, fetching the next batch
// with a getMore command once the current one is exhausted.
type Cursor struct {
	client *topology.Client
	db     string
	coll   string

	id     int64
	batch  []bsoncore.Document
	idx    int
	cur    bsoncore.Document
	err    error
	closed bool
}

func newCursorFromReply(client *topology.Client, db, coll string, reply bsoncore.Document, batchKey string) (*Cursor, error) {
	cursorDoc, ok := reply.Lookup("cursor")
	if !ok {
		return nil, fmt.Errorf("mongo: reply missing \"cursor\" field")
	}
	sub, ok := cursorDoc.DocumentOK()
	if !ok {
		return nil, fmt.Errorf("mongo: \"cursor\" field is not a document")
	}
	cursor := bsoncore.Document(sub)

	idVal, ok := cursor.Lookup("id")
	if !ok {
		return nil, fmt.Errorf("mongo: cursor reply missing \"id\" field")
	}
	id, ok := idVal.Int64OK()
	if !ok {
		return nil, fmt.Errorf("mongo: cursor \"id\" field is not an int64")
	}

	batchVal, ok := cursor.Lookup(batchKey)
	if !ok {
		return nil, fmt.Errorf("mongo: cursor reply missing %q field", batchKey)
	}
	arrBytes, ok := batchVal.ArrayOK()
	if !ok {
		return nil, fmt.Errorf("mongo: cursor %q field is not an array", batchKey)
	}
	values, err := bsoncore.Array(arrBytes).Values()
	if err != nil {
		return nil, fmt.Errorf("mongo: decode %s: %w", batchKey, err)
	}
	batch := make([]bsoncore.Document, 0, len(values))
	for _, v := range values {
		doc, ok := v.DocumentOK()
		if !ok {
			return nil, fmt.Errorf("mongo: %s element is not a document", batchKey)
		}
		batch = append(batch, bsoncore.Document(doc))
	}

	return &Cursor{client: client, db: db, coll: coll, id: id, batch: batch}, nil
}

// Next advances the cursor to its next document, fetching another batch
// via getMore if the current one is exhausted and the server hasn't
// reported the cursor closed (id == 0). It returns false once no further
// document is available or an error occurred; check Err afterward.
func (cur *Cursor) Next(ctx context.Context) bool {
	if cur.closed || cur.err != nil {
		return false
	}
	if cur.idx < len(cur.batch) {
		cur.cur = cur.batch[cur.idx]
		cur.idx++
		return true
	}
	if cur.id == 0 {
		return false
	}
	if err := cur.getMore(ctx); err != nil {
		cur.err = err
		return false
	}
	if len(cur.batch) == 0 {
		return false
	}
	cur.cur = cur.batch[0]
	cur.idx = 1
	return true
}

func (cur *Cursor) getMore(ctx context.Context) error {
	cmd, err := bsonmut.Build(
		bsonmut.Int64("getMore", cur.id),
		bsonmut.StringField("collection", cur.coll),
	)
	if err != nil {
		return err
	}
	reply, err := cur.client.RunCommand(ctx, cur.db, cmd)
	if err != nil {
		return err
	}
	next, err := newCursorFromReply(cur.client, cur.db, cur.coll, reply, "nextBatch")
	if err != nil {
		return err
	}
	cur.id = next.id
	cur.batch = next.batch
	cur.idx = 0
	return nil
}

// Current returns the document Next most recently advanced to.
func (cur *Cursor) Current() bsoncore.Document { return cur.cur }

// Err returns the first error Next encountered, if any.
func (cur *Cursor) Err() error { return cur.err }

// Close marks the cursor closed. It does not issue a killCursors command:
// the round-trip surface this package exposes is limited to find/getMore,
// per SPEC_FULL.md's "Supplemented features" scope for Cursor.
func (cur *Cursor) Close() error {
	cur.closed = true
	return nil
}
