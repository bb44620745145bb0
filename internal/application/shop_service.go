package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"

	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/ports"
)

// Scopes requested at install time. Reporting only reads.
const requestedScopes = "read_orders,read_products"

// ShopService handles the install lifecycle of a shop: OAuth authorization,
// credential storage, timezone refresh and uninstall cleanup.
type ShopService struct {
	shops    ports.ShopRepository
	cache    ports.ProductTypeCache
	sessions ports.SessionStore
	shopify  ports.ShopifyAPI
	app      goshopify.App
	logger   zerolog.Logger
}

// NewShopService creates a new shop service.
func NewShopService(
	shops ports.ShopRepository,
	cache ports.ProductTypeCache,
	sessions ports.SessionStore,
	shopify ports.ShopifyAPI,
	apiKey, apiSecret, appURL string,
	logger zerolog.Logger,
) *ShopService {
	return &ShopService{
		shops:    shops,
		cache:    cache,
		sessions: sessions,
		shopify:  shopify,
		app: goshopify.App{
			ApiKey:      apiKey,
			ApiSecret:   apiSecret,
			RedirectUrl: appURL + "/auth/callback",
			Scope:       requestedScopes,
		},
		logger: logger,
	}
}

// BeginAuth stores a CSRF state session and returns the Shopify authorization
// URL to redirect the merchant to.
func (s *ShopService) BeginAuth(ctx context.Context, shop string) (string, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	session := &domain.Session{
		Shop:      shop,
		State:     state,
		Scopes:    strings.Split(requestedScopes, ","),
		CreatedAt: time.Now(),
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		s.app.ApiKey,
		url.QueryEscape(requestedScopes),
		url.QueryEscape(s.app.RedirectUrl),
		state,
	)
	return authURL, nil
}

// VerifyCallback checks the HMAC signature Shopify appends to the OAuth
// callback query string.
func (s *ShopService) VerifyCallback(u *url.URL) bool {
	ok, err := s.app.VerifyAuthorizationURL(u)
	if err != nil {
		s.logger.Warn().Err(err).Msg("OAuth callback HMAC verification errored")
		return false
	}
	return ok
}

// CompleteAuth validates the state session, exchanges the authorization code
// for an access token, fetches the shop's timezone and currency, and upserts
// the credential record.
func (s *ShopService) CompleteAuth(ctx context.Context, shop, code, state string) (*domain.Shop, error) {
	session, err := s.sessions.GetSession(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.Shop != shop {
		return nil, fmt.Errorf("invalid or expired oauth state for shop %s", shop)
	}
	if err := s.sessions.DeleteSession(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to delete oauth session")
	}

	token, err := s.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	record := &domain.Shop{
		Domain:      shop,
		AccessToken: token,
		Scopes:      requestedScopes,
	}

	// Timezone and currency are refreshed best-effort: the report falls
	// back to UTC when they are missing.
	info, err := s.shopify.GetShopInfo(ctx, shop, token)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to fetch shop info after install")
	} else {
		record.IANATimezone = info.IANATimezone
		record.Currency = info.Currency
	}

	if err := s.shops.SaveShop(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save shop: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Str("timezone", record.IANATimezone).
		Str("token_suffix", record.TokenSuffix()).
		Msg("Shop installed")

	return record, nil
}

// RemoveShop deletes the credential record and every cached product type for
// the shop. Used for app/uninstalled and shop/redact.
func (s *ShopService) RemoveShop(ctx context.Context, shop string) error {
	if err := s.shops.DeleteShop(ctx, shop); err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	if err := s.cache.DeleteShop(ctx, shop); err != nil {
		return fmt.Errorf("failed to delete cached product types: %w", err)
	}
	s.logger.Info().Str("shop", shop).Msg("Shop data removed")
	return nil
}
