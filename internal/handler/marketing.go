package handler

import "github.com/chatbuddy/core/internal/domain"

// MarketingHandler answers promotion, coupon, and newsletter questions.
type MarketingHandler struct {
	gen Generator
}

// NewMarketingHandler builds a MarketingHandler. gen may be nil.
func NewMarketingHandler(gen Generator) *MarketingHandler {
	return &MarketingHandler{gen: gen}
}

func (h *MarketingHandler) Kind() domain.HandlerKind { return domain.HandlerMarketing }

func (h *MarketingHandler) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name: "marketing_agent",
		SystemPrompt: "Te az aktuális akciókról, kedvezménykódokról és hírlevélről tájékoztató " +
			"ágens vagy. Soha ne ígérj olyan kedvezményt, ami nincs az aktív promóciók között.",
		Tools: []domain.ToolDescriptor{
			{Name: "get_active_promotions", Description: "Aktív akciók lekérése", Schema: map[string]any{}},
			{Name: "get_coupon_code", Description: "Kuponkód lekérése kategória alapján",
				Schema: map[string]any{"category": "string"}},
		},
	}
}

func (h *MarketingHandler) Handle(ctx domain.Context, message string, deps domain.HandlerDeps) domain.AgentResponse {
	return safeHandle(h.Kind(), h.Descriptor(), h.gen, ctx, message, deps,
		"Jelenleg nincs elérhető adatom az aktív akciókról, látogass el a promóciós oldalunkra.")
}

var _ domain.Handler = (*MarketingHandler)(nil)
