package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hansal/butchershop/internal/config"
	"github.com/hansal/butchershop/internal/es"
	"github.com/hansal/butchershop/internal/events"
	"github.com/hansal/butchershop/internal/handlers"
	"github.com/hansal/butchershop/internal/logging"
	loggingmw "github.com/hansal/butchershop/internal/middleware/logging"
	"github.com/hansal/butchershop/internal/pdf"
	"github.com/hansal/butchershop/internal/service/admin"
	"github.com/hansal/butchershop/internal/service/inventory"
	"github.com/hansal/butchershop/internal/service/invoices"
	"github.com/hansal/butchershop/internal/service/orders"
	"github.com/hansal/butchershop/internal/service/slaughters"
	httpserver "github.com/hansal/butchershop/internal/transport/http"
)

const productIndex = "product"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logBuffer := logging.NewBuffer(1000)
	logger := logging.NewBuffered(configuration.LOG_LEVEL, logBuffer)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	var producer *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer, err = events.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	renderer := pdf.NewRenderer()

	orderSvc := &orders.Service{DB: db}
	invoiceSvc := &invoices.Service{DB: db, Renderer: renderer}
	slaughterSvc := &slaughters.Service{DB: db}
	inventorySvc := &inventory.Service{DB: db}
	adminSvc := &admin.Service{DB: db}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:               db,
		ProductHandler:   &handlers.ProductHandler{DB: db, Producer: producer, ES: esClient, Index: productIndex},
		OrderHandler:     &handlers.OrderHandler{Orders: orderSvc, Producer: producer},
		InvoiceHandler:   &handlers.InvoiceHandler{Invoices: invoiceSvc, Producer: producer},
		SlaughterHandler: &handlers.SlaughterHandler{Slaughters: slaughterSvc, Producer: producer},
		MeatCutHandler:   &handlers.MeatCutHandler{Inventory: inventorySvc},
		AdminHandler:     &handlers.AdminHandler{Admin: adminSvc},
		SearchHandler:    &handlers.SearchHandler{ES: esClient, Index: productIndex},
		LogHandler:       &handlers.LogHandler{Buffer: logBuffer},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.HTTP_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db handle error", "error", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
