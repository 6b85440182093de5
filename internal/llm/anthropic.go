// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/avasek/tailor/pkg/types"
)

// AnthropicProvider implements Provider using the Anthropic API.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicProvider creates an Anthropic provider. The API key comes
// from the configuration or the ANTHROPIC_API_KEY environment variable.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: model ID is required", ErrLLMFailure)
	}

	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("%w: anthropic API key not configured, set ANTHROPIC_API_KEY or the api_key setting", ErrLLMFailure)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	client := anthropic.NewClient(option.WithAPIKey(key))
	return &AnthropicProvider{
		client:    &client,
		model:     cfg.ModelID,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the provider name used in configuration.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Stream sends the request via Messages.NewStreaming and yields events as
// they arrive. A cancelled context ends the stream without error so a user
// interrupt keeps whatever arrived before it.
func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		system, messages := buildAnthropicMessages(req)

		model := req.Model
		if model == "" {
			model = p.model
		}
		maxTokens := req.MaxTokens
		if maxTokens == 0 {
			maxTokens = p.maxTokens
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages:  messages,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		var usage *types.TokenUsage

		stream := p.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						select {
						case events <- Event{Type: EventTextDelta, Text: delta.Text}:
						case <-ctx.Done():
							return nil
						}
					}
				}
			case anthropic.MessageDeltaEvent:
				if variant.Usage.OutputTokens > 0 {
					usage = &types.TokenUsage{
						InputTokens:  int(variant.Usage.InputTokens),
						OutputTokens: int(variant.Usage.OutputTokens),
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("%w: anthropic streaming: %v", ErrLLMFailure, err)
		}

		if usage != nil {
			select {
			case events <- Event{Type: EventUsage, Usage: usage}:
			case <-ctx.Done():
				return nil
			}
		}
		select {
		case events <- Event{Type: EventDone}:
		case <-ctx.Done():
		}
		return nil
	}), nil
}

// buildAnthropicMessages converts generic messages into Anthropic API
// types. System-role messages are folded into the system string alongside
// Request.System.
func buildAnthropicMessages(req Request) (string, []anthropic.MessageParam) {
	system := req.System

	var out []anthropic.MessageParam
	for _, msg := range req.Messages {
		switch msg.Role {
		case types.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case types.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return system, out
}
