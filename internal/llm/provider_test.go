// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasek/tailor/pkg/types"
)

func TestEventStream_DeliversThenEOF(t *testing.T) {
	s := newEventStream(context.Background(), func(ctx context.Context, events chan<- Event) error {
		events <- Event{Type: EventTextDelta, Text: "a"}
		events <- Event{Type: EventTextDelta, Text: "b"}
		events <- Event{Type: EventDone}
		return nil
	})

	var texts []string
	for {
		ev, err := s.Recv()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		if ev.Type == EventTextDelta {
			texts = append(texts, ev.Text)
		}
	}
	assert.Equal(t, []string{"a", "b"}, texts)

	// EOF is sticky.
	_, err := s.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEventStream_ErrorAfterDrain(t *testing.T) {
	boom := errors.New("boom")
	s := newEventStream(context.Background(), func(ctx context.Context, events chan<- Event) error {
		events <- Event{Type: EventTextDelta, Text: "partial"}
		return boom
	})

	ev, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", ev.Text)

	_, err = s.Recv()
	assert.ErrorIs(t, err, boom)

	// The error is sticky too.
	_, err = s.Recv()
	assert.ErrorIs(t, err, boom)
}

func TestEventStream_CloseUnblocksProducer(t *testing.T) {
	s := newEventStream(context.Background(), func(ctx context.Context, events chan<- Event) error {
		events <- Event{Type: EventTextDelta, Text: "x"}
		<-ctx.Done()
		return ctx.Err()
	})

	ev, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "x", ev.Text)

	require.NoError(t, s.Close())

	_, err = s.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProvider_UnknownName(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "carrier-pigeon"})

	assert.ErrorIs(t, err, ErrLLMFailure)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestNewProvider_BedrockRequiresModel(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "bedrock"})

	assert.ErrorIs(t, err, ErrLLMFailure)
	assert.Contains(t, err.Error(), "model ID")
}

func TestNewAnthropicProvider_MissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewAnthropicProvider(Config{ModelID: "claude-sonnet-4-5"})

	assert.ErrorIs(t, err, ErrLLMFailure)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewAnthropicProvider_KeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	p, err := NewAnthropicProvider(Config{ModelID: "claude-sonnet-4-5"})

	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, defaultMaxTokens, p.maxTokens)
}

func TestBuildAnthropicMessages(t *testing.T) {
	system, messages := buildAnthropicMessages(Request{
		System: "base prompt",
		Messages: []types.Message{
			{Role: types.RoleSystem, Content: "extra system"},
			{Role: types.RoleUser, Content: "task"},
			{Role: types.RoleAssistant, Content: "reply"},
		},
	})

	assert.Equal(t, "base prompt\n\nextra system", system)
	require.Len(t, messages, 2)
}
