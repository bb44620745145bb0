package webhook_handlers

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"shopify-sales-insights/internal/application"
	"shopify-sales-insights/internal/domain"
)

// AppUninstalledHandler removes a shop's credential and cached data when the
// merchant uninstalls the app.
type AppUninstalledHandler struct {
	logger      zerolog.Logger
	shopService *application.ShopService
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler.
func NewAppUninstalledHandler(logger zerolog.Logger, shopService *application.ShopService) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:      logger,
		shopService: shopService,
	}
}

// CanHandle returns true if this handler can process the given topic.
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == "app/uninstalled"
}

// Handle deletes the shop record and its cached product types.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		var payload struct {
			Domain          string `json:"domain"`
			MyshopifyDomain string `json:"myshopify_domain"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			shopDomain = payload.MyshopifyDomain
			if shopDomain == "" {
				shopDomain = payload.Domain
			}
		}
	}
	if shopDomain == "" {
		h.logger.Warn().Str("topic", event.Topic).Msg("Uninstall webhook without shop domain, ignoring")
		return nil
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("Processing app uninstalled webhook event")

	return h.shopService.RemoveShop(ctx, shopDomain)
}
