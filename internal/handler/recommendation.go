package handler

import "github.com/chatbuddy/core/internal/domain"

// RecommendationHandler suggests similar or trending products.
type RecommendationHandler struct {
	gen Generator
}

// NewRecommendationHandler builds a RecommendationHandler. gen may be nil.
func NewRecommendationHandler(gen Generator) *RecommendationHandler {
	return &RecommendationHandler{gen: gen}
}

func (h *RecommendationHandler) Kind() domain.HandlerKind { return domain.HandlerRecommendation }

func (h *RecommendationHandler) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name: "recommendation_agent",
		SystemPrompt: "Te a vásárlóknak hasonló vagy népszerű termékeket ajánló ágens vagy. " +
			"Vedd figyelembe a felhasználó korábbi böngészési kontextusát, ha elérhető.",
		Tools: []domain.ToolDescriptor{
			{Name: "get_similar_products", Description: "Hasonló termékek lekérése",
				Schema: map[string]any{"product_id": "string"}},
			{Name: "get_trending_products", Description: "Jelenleg népszerű termékek lekérése",
				Schema: map[string]any{"category": "string"}},
		},
	}
}

func (h *RecommendationHandler) Handle(ctx domain.Context, message string, deps domain.HandlerDeps) domain.AgentResponse {
	return safeHandle(h.Kind(), h.Descriptor(), h.gen, ctx, message, deps,
		"Most nem tudok személyre szabott ajánlást adni, de nézd meg a legnépszerűbb termékeinket.")
}

var _ domain.Handler = (*RecommendationHandler)(nil)
