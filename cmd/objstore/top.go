// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/objstore/lib/client"
	"github.com/bureau-foundation/objstore/lib/storeview"
)

func runTop(ctx context.Context, session *session, args []string) error {
	if _, err := parseArgs(newFlagSet("top"), args, "top", 0, 0); err != nil {
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
	defer subscription.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifications := make(chan client.Notification)
	go func() {
		defer close(notifications)
		for {
			notification, err := subscription.Next()
			if err != nil {
				if ctx.Err() == nil {
					session.logger.Debug("notification stream ended", "error", err)
				}
				return
			}
			select {
			case notifications <- notification:
			case <-ctx.Done():
				return
			}
		}
	}()

	model := storeview.NewModel(session.config.StoreSocket, c.StoreCapacity(), notifications)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}
