// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongo supplements the distilled spec with the thin cursor type
// spec.md §3's Data Model names explicitly, grounded on
// original_source/include/amongoc/collection.h and aggregate.h's cursor
// semantics (SPEC_FULL.md "Supplemented features"). It deliberately stops
// short of those headers' insert_one/find_one/aggregate CRUD surface,
// which SPEC_FULL.md excludes as out of scope: Collection exposes only
// Find, backed by one find/getMore round trip pair through the wire
// client.
package mongo

import (
	"context"
	"errors"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
	"github.com/amongoc/amongoc-go/x/bsonx/bsonmut"
	"github.com/amongoc/amongoc-go/x/mongo/driver/topology"
)

// ErrCursorClosed describes a Cursor that has been closed. Cursor does not
// return or record it: after Close, Next reports false and Err is unchanged.
var ErrCursorClosed = errors.New("mongo: cursor is closed")

// Collection is a handle to one (database, collection) pair, the minimal
// scope a Find call needs.
type Collection struct {
	client *topology.Client
	db     string
	name   string
}

// NewCollection returns a handle for name in db, round-tripping commands
// through client.
func NewCollection(client *topology.Client, db, name string) *Collection {
	return &Collection{client: client, db: db, name: name}
}

// Find issues a find command with the given filter and returns a Cursor
// over its first batch. batchSize of 0 lets the server choose a default.
func (c *Collection) Find(ctx context.Context, filter bsoncore.Document, batchSize int32) (*Cursor, error) {
	if filter == nil {
		filter = bsoncore.Document(bsoncore.EmptyDocument())
	}
	fields := []bsonmut.Field{
		bsonmut.StringField("find", c.name),
		bsonmut.DocumentField("filter", filter),
	}
	if batchSize > 0 {
		fields = append(fields, bsonmut.Int32("batchSize", batchSize))
	}
	cmd, err := bsonmut.Build(fields...)
	if err != nil {
		return nil, err
	}
	reply, err := c.client.RunCommand(ctx, c.db, cmd)
	if err != nil {
		return nil, err
	}
	return newCursorFromReply(c.client, c.db, c.name, reply, "firstBatch")
}
