package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopify-sales-insights/internal/application"
	"shopify-sales-insights/internal/application/webhook_handlers"
	"shopify-sales-insights/internal/domain"
	"shopify-sales-insights/internal/infrastructure/repository"
	"shopify-sales-insights/internal/infrastructure/session"
	shopifyinfra "shopify-sales-insights/internal/infrastructure/shopify"
	"shopify-sales-insights/internal/ports"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDatabase := os.Getenv("MONGODB_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "sales_insights"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}

	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET environment variables are required")
	}

	// Shopify signs webhook deliveries with the app's API secret unless a
	// dedicated secret is configured.
	webhookSecret := os.Getenv("SHOPIFY_WEBHOOK_SECRET")
	if webhookSecret == "" {
		webhookSecret = apiSecret
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(mongoDatabase)

	// Connect to Redis (OAuth session store)
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})

	// Initialize repositories
	shopRepo := repository.NewMongoShopRepository(db)
	typeCache := repository.NewMongoProductTypeCache(db)
	sessionStore := session.NewRedisSessionStore(redisClient)

	// Initialize the Shopify Admin API client with the default retry policy
	shopifyClient := shopifyinfra.NewClient(logger)

	// Initialize application services
	shopService := application.NewShopService(
		shopRepo,
		typeCache,
		sessionStore,
		shopifyClient,
		apiKey,
		apiSecret,
		appURL,
		logger,
	)

	resolver := application.NewProductTypeResolver(typeCache, shopifyClient, logger)
	reportService := application.NewReportService(shopRepo, shopifyClient, resolver, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, shopService))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewRedactHandler(logger, shopService))

	webhookVerifier := shopifyinfra.NewWebhookVerifier(webhookSecret)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health and diagnostics - public for monitoring
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/diag", diagHandler(shopRepo, appURL, mongoDatabase))
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/shopify", oauthInitHandler(shopService, logger))
	r.Get("/auth/callback", oauthCallbackHandler(shopService, logger))

	// Webhook acknowledgment endpoint
	r.Post("/webhooks/shopify", webhookHandler(webhookVerifier, webhookDispatcher, logger))

	// Reporting API
	r.Get("/api/sales", salesHandler(reportService, logger))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// diagHandler reports boot configuration. Secrets never appear here; only the
// count of installed shops is surfaced.
func diagHandler(shops ports.ShopRepository, appURL, database string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		installed, err := shops.CountShops(r.Context())
		if err != nil {
			installed = -1
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"app_url":         appURL,
			"api_version":     shopifyinfra.APIVersion,
			"database":        database,
			"shops_installed": installed,
		})
	}
}

// oauthInitHandler initiates the OAuth flow
func oauthInitHandler(shopService *application.ShopService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			respondError(w, http.StatusBadRequest, "shop parameter is required")
			return
		}

		authURL, err := shopService.BeginAuth(r.Context(), shop)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin OAuth")
			respondError(w, http.StatusInternalServerError, "failed to begin authorization")
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler handles the OAuth callback
func oauthCallbackHandler(shopService *application.ShopService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if shop == "" || code == "" || state == "" {
			respondError(w, http.StatusBadRequest, "missing required parameters")
			return
		}

		if !shopService.VerifyCallback(r.URL) {
			logger.Warn().Str("shop", shop).Msg("OAuth callback failed HMAC verification")
			respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		record, err := shopService.CompleteAuth(r.Context(), shop, code, state)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to complete OAuth")
			respondError(w, http.StatusInternalServerError, "failed to complete installation")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{
			"installed": record.Domain,
			"timezone":  record.Timezone(),
		})
	}
}

// webhookHandler verifies and dispatches Shopify webhook deliveries.
func webhookHandler(
	verifier *shopifyinfra.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			respondError(w, http.StatusBadRequest, "missing X-Shopify-Topic header")
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		defer r.Body.Close()

		if err := verifier.Verify(payload, r.Header.Get("X-Shopify-Hmac-SHA256")); err != nil {
			logger.Warn().Err(err).Str("topic", topic).Msg("Webhook signature verification failed")
			respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}

		event := &domain.WebhookEvent{
			Topic:   topic,
			Shop:    r.Header.Get("X-Shopify-Shop-Domain"),
			Payload: payload,
		}

		if err := dispatcher.Dispatch(r.Context(), event); err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("Failed to dispatch webhook event")
			// Return 500 to trigger Shopify retry
			respondError(w, http.StatusInternalServerError, "failed to process webhook event")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
	}
}

// salesHandler serves the daily sales report.
func salesHandler(reportService *application.ReportService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		shop := q.Get("shop")
		if shop == "" {
			respondError(w, http.StatusBadRequest, "shop parameter is required")
			return
		}

		report, err := reportService.DailySales(r.Context(), domain.ReportRequest{
			Shop:      shop,
			StartDate: q.Get("start_date"),
			EndDate:   q.Get("end_date"),
			GroupBy:   q.Get("group_by"),
			Metric:    q.Get("metric"),
		})

		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, report)
		case errors.Is(err, domain.ErrMissingCredential):
			respondError(w, http.StatusUnauthorized, fmt.Sprintf("shop %s is not authorized, reinstall the app", shop))
		case errors.Is(err, domain.ErrBadDateRange):
			respondError(w, http.StatusBadRequest, "start_date must not be after end_date")
		case domain.IsUpstream(err):
			logger.Error().Err(err).Str("shop", shop).Msg("Upstream failure during sales report")
			respondError(w, http.StatusBadGateway, "shopify api request failed")
		default:
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to generate sales report")
			respondError(w, http.StatusInternalServerError, "failed to generate report")
		}
	}
}
