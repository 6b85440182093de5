// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/avasek/tailor/pkg/types"
)

// BedrockAPI abstracts the Bedrock ConverseStream call for testing.
type BedrockAPI interface {
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// ConverseEventStream abstracts the Bedrock event stream for testing.
type ConverseEventStream interface {
	Events() <-chan brtypes.ConverseStreamOutput
	Close() error
	Err() error
}

// BedrockProvider implements Provider using the AWS Bedrock runtime.
type BedrockProvider struct {
	api       BedrockAPI
	modelID   string
	timeout   time.Duration
	maxTokens int
}

// NewBedrockProvider creates a Bedrock provider from the given configuration.
// It initializes the AWS SDK client using the standard credential chain.
func NewBedrockProvider(ctx context.Context, cfg Config) (*BedrockProvider, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: model ID is required", ErrLLMFailure)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrLLMFailure)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrLLMFailure, err)
	}

	return NewBedrockProviderWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewBedrockProviderWithAPI creates a provider with a pre-configured API
// implementation. Used for testing with mock clients.
func NewBedrockProviderWithAPI(api BedrockAPI, cfg Config) *BedrockProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return &BedrockProvider{
		api:       api,
		modelID:   cfg.ModelID,
		timeout:   timeout,
		maxTokens: maxTokens,
	}
}

// Name returns the provider name used in configuration.
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// Stream sends the request via ConverseStream and yields events as they
// arrive. Rate limits are retried with exponential backoff; each retry is
// surfaced as an EventRetry so the display can show the wait.
func (p *BedrockProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		return p.converse(ctx, req, events)
	}), nil
}

// converse calls ConverseStream with exponential backoff retry for rate
// limit errors, then consumes the resulting event stream.
func (p *BedrockProvider) converse(ctx context.Context, req Request, events chan<- Event) error {
	system, messages := buildBedrockMessages(req)

	model := req.Model
	if model == "" {
		model = p.modelID
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(model),
		System:   system,
		Messages: messages,
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(maxTokens)),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case events <- Event{Type: EventRetry, RetryAttempt: attempt, RetryWait: delay}:
			case <-ctx.Done():
				return fmt.Errorf("%w: context cancelled during retry: %v", ErrLLMFailure, ctx.Err())
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: context cancelled during retry: %v", ErrLLMFailure, ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)

		output, err := p.api.ConverseStream(callCtx, input)
		if err != nil {
			cancel()

			var throttle *brtypes.ThrottlingException
			if errors.As(err, &throttle) {
				lastErr = err
				continue
			}

			return p.classifyError(err)
		}

		err = p.consume(callCtx, output.GetStream(), events)
		cancel()
		return err
	}

	return fmt.Errorf("%w: rate limited after %d retries: %v", ErrLLMFailure, maxRetryAttempts, lastErr)
}

// consume reads events from a Bedrock ConverseStream and forwards text
// deltas. A cancelled context ends the stream without error so a user
// interrupt keeps whatever arrived before it; a deadline is reported as
// a timeout.
func (p *BedrockProvider) consume(ctx context.Context, stream ConverseEventStream, events chan<- Event) error {
	interrupted := func() error {
		stream.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return p.classifyError(ctx.Err())
		}
		return nil
	}

	var usage *types.TokenUsage

	evch := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return interrupted()

		case event, ok := <-evch:
			if !ok {
				if err := stream.Err(); err != nil {
					return p.classifyError(err)
				}
				if usage != nil {
					select {
					case events <- Event{Type: EventUsage, Usage: usage}:
					case <-ctx.Done():
						return interrupted()
					}
				}
				select {
				case events <- Event{Type: EventDone}:
				case <-ctx.Done():
					return interrupted()
				}
				return nil
			}

			switch v := event.(type) {
			case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
				if delta, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
					select {
					case events <- Event{Type: EventTextDelta, Text: delta.Value}:
					case <-ctx.Done():
						return interrupted()
					}
				}

			case *brtypes.ConverseStreamOutputMemberMetadata:
				if v.Value.Usage != nil {
					usage = &types.TokenUsage{}
					if v.Value.Usage.InputTokens != nil {
						usage.InputTokens = int(*v.Value.Usage.InputTokens)
					}
					if v.Value.Usage.OutputTokens != nil {
						usage.OutputTokens = int(*v.Value.Usage.OutputTokens)
					}
				}
			}
		}
	}
}

// classifyError wraps Bedrock errors into ErrLLMFailure with descriptive messages.
func (p *BedrockProvider) classifyError(err error) error {
	var accessDenied *brtypes.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return fmt.Errorf("%w: credential or permission issue: %v", ErrLLMFailure, err)
	}

	var notFound *brtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: model not found: %s", ErrLLMFailure, p.modelID)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out after %s", ErrLLMFailure, p.timeout)
	}

	return fmt.Errorf("%w: %v", ErrLLMFailure, err)
}

// buildBedrockMessages converts generic messages into Bedrock API types.
// System-role messages are folded into the system block alongside
// Request.System.
func buildBedrockMessages(req Request) ([]brtypes.SystemContentBlock, []brtypes.Message) {
	var system []brtypes.SystemContentBlock
	if req.System != "" {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: req.System})
	}

	var messages []brtypes.Message
	for _, msg := range req.Messages {
		switch msg.Role {
		case types.RoleSystem:
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: msg.Content})
		case types.RoleAssistant:
			messages = append(messages, brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: msg.Content},
				},
			})
		default:
			messages = append(messages, brtypes.Message{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: msg.Content},
				},
			})
		}
	}

	return system, messages
}
