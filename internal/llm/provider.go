// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package llm streams model output from a configured provider. Two
// transports are supported: AWS Bedrock via ConverseStream and the
// Anthropic API via Messages.NewStreaming. Both surface the same
// Event sequence so the session layer never sees vendor types.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avasek/tailor/pkg/types"
)

const (
	defaultTimeout   = 300 * time.Second
	defaultMaxTokens = 4096
	maxRetryAttempts = 3
	baseRetryDelay   = 1 * time.Second
)

// ErrLLMFailure indicates the LLM call failed (network, auth, rate limit).
var ErrLLMFailure = errors.New("LLM failure")

// Config selects and configures a model provider.
type Config struct {
	Provider  string        // "bedrock" or "anthropic"
	ModelID   string        // Model identifier (required)
	Region    string        // Bedrock: AWS region
	Profile   string        // Bedrock: AWS credential profile (optional)
	APIKey    string        // Anthropic: API key (falls back to ANTHROPIC_API_KEY)
	Timeout   time.Duration // Per-request timeout (default 300s)
	MaxTokens int           // Max tokens for the response (default 4096)
}

// Request represents a single model turn.
type Request struct {
	Model     string // Overrides the configured model when non-empty
	System    string // System prompt
	Messages  []types.Message
	MaxTokens int // Overrides the configured max tokens when non-zero
}

// EventType describes streaming events.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventUsage     EventType = "usage"
	EventRetry     EventType = "retry"
	EventDone      EventType = "done"
)

// Event represents a streamed output update.
type Event struct {
	Type  EventType
	Text  string            // For EventTextDelta
	Usage *types.TokenUsage // For EventUsage
	// Retry fields (for EventRetry)
	RetryAttempt int
	RetryWait    time.Duration
}

// Stream yields events until io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Provider streams model output events for a request.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// NewProvider creates a model provider from the given configuration.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "bedrock", "":
		return NewBedrockProvider(ctx, cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (supported: bedrock, anthropic)", ErrLLMFailure, cfg.Provider)
	}
}

// eventStream adapts a producer goroutine to the pull-based Stream
// interface. The producer's return value is delivered by Recv after
// the event channel drains; a nil return yields io.EOF.
type eventStream struct {
	events chan Event
	errCh  chan error
	cancel context.CancelFunc
	err    error
	done   bool
}

func newEventStream(ctx context.Context, run func(ctx context.Context, events chan<- Event) error) *eventStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		events: make(chan Event, 64),
		errCh:  make(chan error, 1),
		cancel: cancel,
	}
	go func() {
		defer close(s.events)
		s.errCh <- run(ctx, s.events)
	}()
	return s
}

func (s *eventStream) Recv() (Event, error) {
	ev, ok := <-s.events
	if !ok {
		if !s.done {
			s.done = true
			s.err = <-s.errCh
		}
		if s.err != nil {
			return Event{}, s.err
		}
		return Event{}, io.EOF
	}
	return ev, nil
}

// Close cancels the producer. Pending events may still be received.
func (s *eventStream) Close() error {
	s.cancel()
	return nil
}
