package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text string
	err  error
	panicOn bool
}

func (g *stubGenerator) Generate(ctx domain.Context, systemPrompt, message string, tools []domain.ToolDescriptor, deps domain.HandlerDeps) (string, error) {
	if g.panicOn {
		panic("boom")
	}
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

func TestProductHandler_NilGenerator_ReturnsCanned(t *testing.T) {
	h := NewProductHandler(nil)
	resp := h.Handle(context.Background(), "van ilyen telefon?", domain.HandlerDeps{})
	require.Equal(t, domain.HandlerProduct, resp.HandlerKind)
	require.Greater(t, resp.Confidence, 0.0)
	require.Equal(t, "canned", resp.Metadata["source"])
}

func TestOrderHandler_GeneratorSuccess(t *testing.T) {
	h := NewOrderHandler(&stubGenerator{text: "a rendelésed úton van"})
	resp := h.Handle(context.Background(), "hol a rendelésem", domain.HandlerDeps{})
	require.Equal(t, "a rendelésed úton van", resp.Text)
	require.Equal(t, 0.85, resp.Confidence)
}

func TestRecommendationHandler_GeneratorError_ZeroConfidence(t *testing.T) {
	h := NewRecommendationHandler(&stubGenerator{err: errors.New("provider down")})
	resp := h.Handle(context.Background(), "ajánlj valamit", domain.HandlerDeps{})
	require.Equal(t, 0.0, resp.Confidence)
	require.Contains(t, resp.Metadata["error_type"], "generation_failed")
}

func TestMarketingHandler_GeneratorPanic_NeverPropagates(t *testing.T) {
	h := NewMarketingHandler(&stubGenerator{panicOn: true})
	require.NotPanics(t, func() {
		resp := h.Handle(context.Background(), "van kupon?", domain.HandlerDeps{})
		require.Equal(t, 0.0, resp.Confidence)
		require.Equal(t, "panic", resp.Metadata["error_type"])
	})
}

func TestGeneralHandler_Descriptor(t *testing.T) {
	h := NewGeneralHandler(nil)
	d := h.Descriptor()
	require.Equal(t, "general_agent", d.Name)
	require.NotEmpty(t, d.SystemPrompt)
}
