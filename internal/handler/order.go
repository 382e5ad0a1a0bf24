package handler

import "github.com/chatbuddy/core/internal/domain"

// OrderHandler answers order status, shipping, and tracking questions.
type OrderHandler struct {
	gen Generator
}

// NewOrderHandler builds an OrderHandler. gen may be nil.
func NewOrderHandler(gen Generator) *OrderHandler {
	return &OrderHandler{gen: gen}
}

func (h *OrderHandler) Kind() domain.HandlerKind { return domain.HandlerOrder }

func (h *OrderHandler) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name: "order_status_agent",
		SystemPrompt: "Te a vásárlói rendeléseket kezelő ágens vagy. Adj pontos választ a " +
			"rendelés állapotára, szállítási idejére és csomagkövetési adataira. Soha ne " +
			"találj ki rendelésszámot vagy státuszt, ha nincs rá adat.",
		Tools: []domain.ToolDescriptor{
			{Name: "get_order_status", Description: "Rendelés státuszának lekérése",
				Schema: map[string]any{"order_id": "string"}},
			{Name: "get_tracking_info", Description: "Csomagkövetési adatok lekérése",
				Schema: map[string]any{"tracking_number": "string"}},
		},
	}
}

func (h *OrderHandler) Handle(ctx domain.Context, message string, deps domain.HandlerDeps) domain.AgentResponse {
	return safeHandle(h.Kind(), h.Descriptor(), h.gen, ctx, message, deps,
		"A rendelésed adatait jelenleg nem tudom elérni, kérlek próbáld meg kicsit később.")
}

var _ domain.Handler = (*OrderHandler)(nil)
