package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pharmaorder/internal/config"
	"pharmaorder/internal/database"
	"pharmaorder/internal/handler"
	"pharmaorder/internal/model"
	"pharmaorder/internal/mw"
	"pharmaorder/internal/repository"
	"pharmaorder/internal/service"
)

func main() {
	cfg := config.New()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	// Repositories
	orders := repository.NewOrderPG(db)
	users := repository.NewUserPG(db)
	pharmacies := repository.NewPharmacyPG(db)
	prescriptions := repository.NewPrescriptionPG(db)

	// Services
	authSvc := service.NewAuthService(users)
	orderSvc := service.NewOrderService(orders, users, pharmacies, prescriptions)
	pharmacySvc := service.NewPharmacyService(pharmacies)
	prescriptionSvc := service.NewPrescriptionService(prescriptions, users)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/auth/register", handler.RegisterHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/auth/login", handler.LoginHandler(authSvc, cfg.JWTSecret))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/api/pharmacies", handler.ListPharmaciesHandler(pharmacySvc))
		r.Get("/api/prescriptions", handler.ListPrescriptionsHandler(prescriptionSvc))
		r.Get("/api/orders", handler.ListOrdersHandler(orderSvc))
		r.Get("/api/orders/latest", handler.LatestOrdersHandler(orderSvc))

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(model.RolePatient))
			r.Post("/api/orders", handler.CreateOrderHandler(orderSvc))
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(model.RoleDoctor))
			r.Post("/api/prescriptions", handler.IssuePrescriptionHandler(prescriptionSvc))
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(model.RolePharmacy))
			r.Post("/api/pharmacies", handler.RegisterPharmacyHandler(pharmacySvc))
			r.Put("/api/orders/{orderID}/status", handler.UpdateStatusHandler(orderSvc))
			r.Get("/api/orders/pharmacy/{pharmacyID}/pending", handler.PharmacyQueueHandler(orderSvc, model.StatusPending))
			r.Get("/api/orders/pharmacy/{pharmacyID}/confirmed", handler.PharmacyQueueHandler(orderSvc, model.StatusConfirmed))
		})
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
