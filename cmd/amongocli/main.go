// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command amongocli is a cobra-based smoke-test client: it connects to a
// mongod, runs a hello command, and prints the reply, grounded on the
// DOMAIN STACK's github.com/spf13/cobra wiring (SPEC_FULL.md) and the
// teacher's own cmd/ entrypoint conventions.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amongoc/amongoc-go/x/bsonx/bsonmut"
	"github.com/amongoc/amongoc-go/x/mongo/driver/topology"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		host        string
		port        string
		dialTimeout time.Duration
	)

	root := &cobra.Command{
		Use:   "amongocli",
		Short: "Connect to a mongod and run a single hello command",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHello(cmd.Context(), host, port, dialTimeout)
		},
	}
	root.Flags().StringVar(&host, "host", "localhost", "mongod host")
	root.Flags().StringVar(&port, "port", "27017", "mongod port")
	root.Flags().DurationVar(&dialTimeout, "dial-timeout", 10*time.Second, "dial timeout")
	return root
}

func runHello(ctx context.Context, host, port string, dialTimeout time.Duration) error {
	client := topology.NewClient(
		topology.WithHost(host, port),
		topology.WithDialTimeout(dialTimeout),
	)

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	// requestTag is a per-invocation id sent as the hello command's "client"
	// field; it is separate from the wire header's own int32 request-id
	// counter (SPEC_FULL.md DOMAIN STACK, github.com/google/uuid).
	requestTag := uuid.New().String()

	cmd, err := bsonmut.Build(
		bsonmut.Int32("hello", 1),
		bsonmut.StringField("client", requestTag),
	)
	if err != nil {
		return fmt.Errorf("build hello command: %w", err)
	}

	reply, err := client.RunCommand(ctx, "admin", cmd)
	if err != nil {
		return fmt.Errorf("run hello: %w", err)
	}

	fmt.Println(reply.String())
	return nil
}
