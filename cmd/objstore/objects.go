// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/payload"
	"github.com/bureau-foundation/objstore/lib/process"
)

// newFlagSet returns a flag set that reports errors instead of
// printing them.
func newFlagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	return flagSet
}

// parseArgs parses flags and checks the positional argument count.
// max < 0 means no upper bound.
func parseArgs(flagSet *pflag.FlagSet, args []string, usage string, min, max int) ([]string, error) {
	if err := flagSet.Parse(args); err != nil {
		return nil, process.Exit(2, fmt.Errorf("%w\n\nusage: objstore %s", err, usage))
	}
	positional := flagSet.Args()
	if len(positional) < min || (max >= 0 && len(positional) > max) {
		return nil, process.Exit(2, fmt.Errorf("usage: objstore %s", usage))
	}
	return positional, nil
}

func parseIDs(args []string) ([]objectid.ID, error) {
	ids := make([]objectid.ID, len(args))
	for i, arg := range args {
		id, err := objectid.Parse(arg)
		if err != nil {
			return nil, process.Exit(2, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func runPut(ctx context.Context, session *session, args []string) error {
	flagSet := newFlagSet("put")
	idHex := flagSet.String("id", "", "object ID as 40 hex characters (default: random)")
	compressionName := flagSet.String("compression", "auto", "none, lz4, zstd, or auto")
	contentType := flagSet.String("content-type", "", "MIME type recorded in the object metadata")
	positional, err := parseArgs(flagSet, args, "put [flags] FILE|-", 1, 1)
	if err != nil {
		return err
	}

	compression, err := payload.ParseCompression(*compressionName)
	if err != nil {
		return process.Exit(2, err)
	}
	id := objectid.Random()
	if *idHex != "" {
		if id, err = objectid.Parse(*idHex); err != nil {
			return process.Exit(2, err)
		}
	}

	var data []byte
	if positional[0] == "-" {
		data, err = io.ReadAll(session.stdin)
	} else {
		data, err = os.ReadFile(positional[0])
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	encoded, metadata, err := payload.Encode(data, compression, *contentType)
	if err != nil {
		return err
	}

	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	buffer, err := c.Create(id, int64(len(encoded)), metadata)
	if err != nil {
		return fmt.Errorf("creating object: %w", err)
	}
	copy(buffer.Data(), encoded)
	if err := c.Seal(id); err != nil {
		return fmt.Errorf("sealing object: %w", err)
	}
	buffer.Release()

	header, _ := payload.ParseHeader(metadata)
	session.logger.Info("stored object",
		"object_id", id,
		"size", humanize.IBytes(uint64(len(data))),
		"stored_size", humanize.IBytes(uint64(len(encoded))),
		"encoding", header.Encoding,
	)
	fmt.Fprintln(session.stdout, id)
	return nil
}

func runGet(ctx context.Context, session *session, args []string) error {
	flagSet := newFlagSet("get")
	timeout := flagSet.Duration("timeout", 0, "how long to wait for the object to be sealed (negative: forever)")
	raw := flagSet.Bool("raw", false, "write the stored bytes without decoding")
	outputPath := flagSet.StringP("output", "o", "", "write to this file instead of stdout")
	force := flagSet.Bool("force", false, "write binary data to a terminal")
	positional, err := parseArgs(flagSet, args, "get [flags] ID", 1, 1)
	if err != nil {
		return err
	}
	ids, err := parseIDs(positional)
	if err != nil {
		return err
	}

	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	buffers, err := c.Get(ids, *timeout)
	if err != nil {
		return err
	}
	buffer := buffers[0]
	if buffer == nil {
		return process.Exit(1, fmt.Errorf("object %s not found", ids[0]))
	}
	defer buffer.Release()

	data := buffer.Data()
	if !*raw {
		decoded, _, err := payload.Decode(data, buffer.Metadata())
		if err != nil {
			return fmt.Errorf("decoding object %s: %w", ids[0], err)
		}
		data = decoded
	}

	if *outputPath != "" {
		return os.WriteFile(*outputPath, data, 0644)
	}
	if file, ok := session.stdout.(*os.File); ok && term.IsTerminal(int(file.Fd())) && !*force && !utf8.Valid(data) {
		return errors.New("refusing to write binary data to a terminal; use --output or --force")
	}
	_, err = session.stdout.Write(data)
	return err
}

func runContains(ctx context.Context, session *session, args []string) error {
	positional, err := parseArgs(newFlagSet("contains"), args, "contains ID", 1, 1)
	if err != nil {
		return err
	}
	ids, err := parseIDs(positional)
	if err != nil {
		return err
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	found, err := c.Contains(ids[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(session.stdout, found)
	if !found {
		return process.Exit(1, nil)
	}
	return nil
}

func runHash(ctx context.Context, session *session, args []string) error {
	positional, err := parseArgs(newFlagSet("hash"), args, "hash ID", 1, 1)
	if err != nil {
		return err
	}
	ids, err := parseIDs(positional)
	if err != nil {
		return err
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	digest, err := c.Hash(ids[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(session.stdout, digest)
	return nil
}

func runEvict(ctx context.Context, session *session, args []string) error {
	positional, err := parseArgs(newFlagSet("evict"), args, "evict SIZE", 1, 1)
	if err != nil {
		return err
	}
	size, err := humanize.ParseBytes(positional[0])
	if err != nil {
		return process.Exit(2, fmt.Errorf("parsing size: %w", err))
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	evicted, err := c.Evict(int64(size))
	if err != nil {
		return err
	}
	fmt.Fprintf(session.stdout, "evicted %s (%s bytes)\n", humanize.IBytes(uint64(evicted)), humanize.Comma(evicted))
	return nil
}

func runStatus(ctx context.Context, session *session, args []string) error {
	if _, err := parseArgs(newFlagSet("status"), args, "status", 0, 0); err != nil {
		return err
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	manager := "none"
	if c.HasManager() {
		manager = session.config.ManagerSocket
	}
	fmt.Fprintf(session.stdout, "store:     %s\n", session.config.StoreSocket)
	fmt.Fprintf(session.stdout, "manager:   %s\n", manager)
	fmt.Fprintf(session.stdout, "capacity:  %s\n", humanize.IBytes(uint64(c.StoreCapacity())))
	fmt.Fprintf(session.stdout, "in use:    %s\n", humanize.IBytes(uint64(c.InUseBytes())))
	return nil
}

func runWatch(ctx context.Context, session *session, args []string) error {
	flagSet := newFlagSet("watch")
	count := flagSet.Int("count", 0, "exit after this many notifications (0: run until interrupted)")
	if _, err := parseArgs(flagSet, args, "watch [flags]", 0, 0); err != nil {
		return err
	}
	c, err := session.connect(ctx)
	if err != nil {
		return err
	}
	subscription, err := c.Subscribe()
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { subscription.Close() })
	defer stop()
	defer subscription.Close()

	for seen := 0; *count == 0 || seen < *count; seen++ {
		notification, err := subscription.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading notification: %w", err)
		}
		if notification.Deleted {
			fmt.Fprintf(session.stdout, "%s deleted %s\n", time.Now().Format(time.RFC3339), notification.ID)
			continue
		}
		fmt.Fprintf(session.stdout, "%s sealed  %s data=%s metadata=%s\n",
			time.Now().Format(time.RFC3339), notification.ID,
			humanize.IBytes(uint64(notification.DataSize)), humanize.IBytes(uint64(notification.MetadataSize)))
	}
	return nil
}
