package handler

import "github.com/chatbuddy/core/internal/domain"

// GeneralHandler is the default handler for messages that don't match any
// more specific classifier precedence tier.
type GeneralHandler struct {
	gen Generator
}

// NewGeneralHandler builds a GeneralHandler. gen may be nil.
func NewGeneralHandler(gen Generator) *GeneralHandler {
	return &GeneralHandler{gen: gen}
}

func (h *GeneralHandler) Kind() domain.HandlerKind { return domain.HandlerGeneral }

func (h *GeneralHandler) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name: "general_agent",
		SystemPrompt: "Te egy udvarias ügyfélszolgálati ágens vagy. Ha a kérdés egy " +
			"konkrét témához tartozik (termék, rendelés, ajánlás, akció), javasold a " +
			"megfelelő ügyintézőt.",
	}
}

func (h *GeneralHandler) Handle(ctx domain.Context, message string, deps domain.HandlerDeps) domain.AgentResponse {
	return safeHandle(h.Kind(), h.Descriptor(), h.gen, ctx, message, deps,
		"Szia! Miben segíthetek ma?")
}

var _ domain.Handler = (*GeneralHandler)(nil)
