// Package handler implements the specialized responders behind the handler
// registry (C5): uniform Handle(message, deps) wrappers around product,
// order, recommendation, marketing, and general-purpose agents. Handlers
// never panic; any internal failure collapses to a zero-confidence
// AgentResponse with metadata.error_type set.
package handler

import (
	"fmt"
	"log/slog"

	"github.com/chatbuddy/core/internal/domain"
)

// Generator is the external LLM layer a handler calls into to turn its
// system prompt, tool descriptors, and the user message into response
// text. The core treats it as an opaque, optional collaborator: when nil,
// a handler falls back to a canned deterministic reply so the fabric
// remains runnable without a configured model provider.
type Generator interface {
	Generate(ctx domain.Context, systemPrompt, message string, tools []domain.ToolDescriptor, deps domain.HandlerDeps) (string, error)
}

func safeHandle(kind domain.HandlerKind, descriptor domain.Descriptor, gen Generator, ctx domain.Context, message string, deps domain.HandlerDeps, cannedReply string) (resp domain.AgentResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic recovered", slog.String("handler_kind", string(kind)), slog.Any("panic", r))
			resp = domain.AgentResponse{
				HandlerKind: kind,
				Confidence:  0,
				Metadata:    map[string]any{"error_type": "panic"},
			}
		}
	}()

	if gen == nil {
		return domain.AgentResponse{
			Text:        cannedReply,
			Confidence:  0.7,
			HandlerKind: kind,
			Metadata:    map[string]any{"source": "canned"},
		}
	}

	text, err := gen.Generate(ctx, descriptor.SystemPrompt, message, descriptor.Tools, deps)
	if err != nil {
		slog.Error("handler generation failed", slog.String("handler_kind", string(kind)), slog.Any("error", err))
		return domain.AgentResponse{
			HandlerKind: kind,
			Confidence:  0,
			Metadata:    map[string]any{"error_type": fmt.Sprintf("generation_failed: %v", err)},
		}
	}

	return domain.AgentResponse{
		Text:        text,
		Confidence:  0.85,
		HandlerKind: kind,
		Metadata:    map[string]any{"source": "generated"},
	}
}
