package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roomservice/api/internal/config"
	"github.com/roomservice/api/internal/database"
	"github.com/roomservice/api/internal/draft"
	"github.com/roomservice/api/internal/enum"
	"github.com/roomservice/api/internal/handler"
	mw "github.com/roomservice/api/internal/middleware"
	"github.com/roomservice/api/internal/notify"
	"github.com/roomservice/api/internal/service"
	"github.com/roomservice/api/internal/ws"
)

// Deps are the long-lived components the routes are built from. Guard and
// Notifier are optional.
type Deps struct {
	Config   *config.Config
	Queries  *database.Queries
	Pool     *pgxpool.Pool
	Hub      *ws.Hub
	Drafts   *draft.Store
	Guard    service.SubmitGuard
	Notifier *notify.Dispatcher
}

// New creates a Chi router with all application routes wired up.
func New(d Deps) (chi.Router, error) {
	cfg := d.Config
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := d.Pool.Ping(r.Context()); err != nil {
			log.Printf("WARN: health check: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler, err := handler.NewAuthHandler(cfg.AdminPassword, cfg.JWTSecret, cfg.SecureCookies)
	if err != nil {
		return nil, err
	}
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	catalogService := service.NewCatalogService(d.Pool, d.Queries, func(db database.DBTX) service.CatalogStore {
		return database.New(db)
	})

	orderService := service.NewOrderService(d.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	if d.Guard != nil {
		orderService.WithSubmitGuard(d.Guard)
	}

	var statusNotifier handler.StatusNotifier
	if d.Notifier != nil {
		orderService.WithNotifier(d.Notifier)
		statusNotifier = d.Notifier
	}

	// Storefront (guest session)
	r.Group(func(r chi.Router) {
		r.Use(mw.Session(cfg.SessionCookie, cfg.DraftTTL, cfg.SecureCookies))
		storefront := handler.NewStorefrontHandler(catalogService, d.Drafts, orderService)
		storefront.RegisterRoutes(r)
	})

	// Admin API
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.RoleAdmin))

		itemHandler := handler.NewItemHandler(catalogService)
		itemHandler.RegisterRoutes(r)

		orderHandler := handler.NewOrderHandler(d.Queries, statusNotifier)
		r.Route("/orders", orderHandler.RegisterRoutes)

		reportsHandler := handler.NewReportsHandler(d.Queries)
		r.Route("/reports", reportsHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r, nil
}
