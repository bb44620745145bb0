package webhook_handlers

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"shopify-sales-insights/internal/application"
	"shopify-sales-insights/internal/domain"
)

// RedactHandler answers the mandatory GDPR topics. shop/redact deletes the
// stored credential and cached product types; the customer topics are
// acknowledged only, since the service stores no customer data.
type RedactHandler struct {
	logger      zerolog.Logger
	shopService *application.ShopService
}

// NewRedactHandler creates a new GDPR webhook handler.
func NewRedactHandler(logger zerolog.Logger, shopService *application.ShopService) *RedactHandler {
	return &RedactHandler{
		logger:      logger,
		shopService: shopService,
	}
}

// CanHandle returns true if this handler can process the given topic.
func (h *RedactHandler) CanHandle(topic string) bool {
	return topic == "shop/redact" ||
		topic == "customers/redact" ||
		topic == "customers/data_request"
}

// Handle processes a GDPR webhook event.
func (h *RedactHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Msg("Processing GDPR webhook event")

	if event.Topic != "shop/redact" {
		// No customer data is persisted; acknowledgment is sufficient.
		return nil
	}

	shopDomain := event.Shop
	if shopDomain == "" {
		var payload struct {
			ShopDomain string `json:"shop_domain"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			shopDomain = payload.ShopDomain
		}
	}
	if shopDomain == "" {
		h.logger.Warn().Msg("shop/redact webhook without shop domain, ignoring")
		return nil
	}

	return h.shopService.RemoveShop(ctx, shopDomain)
}
