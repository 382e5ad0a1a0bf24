package handler

import "github.com/chatbuddy/core/internal/domain"

// ProductHandler answers product/specification/stock questions.
type ProductHandler struct {
	gen Generator
}

// NewProductHandler builds a ProductHandler. gen may be nil.
func NewProductHandler(gen Generator) *ProductHandler {
	return &ProductHandler{gen: gen}
}

func (h *ProductHandler) Kind() domain.HandlerKind { return domain.HandlerProduct }

func (h *ProductHandler) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name: "product_agent",
		SystemPrompt: "Te egy webshop terméktanácsadója vagy. Válaszolj tömören a termék " +
			"specifikációjára, árára és készletére vonatkozó kérdésekre. Ha a készlet " +
			"vagy ár adatra van szükséged, használd a megfelelő tool-t.",
		Tools: []domain.ToolDescriptor{
			{Name: "get_product_info", Description: "Terméklap lekérése azonosító vagy név alapján",
				Schema: map[string]any{"product_id": "string", "name": "string"}},
			{Name: "get_stock_level", Description: "Aktuális készlet lekérése",
				Schema: map[string]any{"product_id": "string"}},
		},
	}
}

func (h *ProductHandler) Handle(ctx domain.Context, message string, deps domain.HandlerDeps) domain.AgentResponse {
	return safeHandle(h.Kind(), h.Descriptor(), h.gen, ctx, message, deps,
		"Jelenleg nem tudom pontosan megmondani a készletet vagy árat, kérlek nézd meg a terméklapot.")
}

var _ domain.Handler = (*ProductHandler)(nil)
