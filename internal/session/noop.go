// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package session

import (
	"context"

	"github.com/avasek/tailor/pkg/types"
)

// NoopStore discards all writes and returns empty reads. It stands in
// for the SQLite store when transcript storage is disabled.
type NoopStore struct{}

func (s *NoopStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	return nil
}

func (s *NoopStore) Get(ctx context.Context, id string) (*Session, error) {
	return nil, nil
}

func (s *NoopStore) AddMessage(ctx context.Context, sessionID string, msg *Message) error {
	return nil
}

func (s *NoopStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	return nil, nil
}

func (s *NoopStore) RecordTurn(ctx context.Context, id string, usage types.TokenUsage) error {
	return nil
}

func (s *NoopStore) SetStatus(ctx context.Context, id string, status Status) error {
	return nil
}

func (s *NoopStore) Close() error {
	return nil
}
