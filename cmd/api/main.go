package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ali-azain/GlassFlow-CRM/internal/config"
	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/database"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/http/handlers"
	appmiddleware "github.com/ali-azain/GlassFlow-CRM/internal/infra/http/middleware"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/integration/supabase"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/mail"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/queue"
	"github.com/ali-azain/GlassFlow-CRM/internal/infra/worker"
	"github.com/ali-azain/GlassFlow-CRM/internal/usecase"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port

	if err := cfg.Validate(); err != nil {
		log.Printf("⚠️ %v; serving setup instructions only", err)
		serve(ctx, addr, configurationRouter(cfg.CORSOrigins, cfg.Missing()), nil)
		return
	}

	// 1. Infra
	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	authClient := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	authCtx := usecase.NewAuthContext(authClient, cfg.AuthRedirectURL)
	defer authCtx.Close()

	store := database.NewStore(db, authCtx, cfg.RLSEnabled)
	leadRepo := database.NewLeadRepository(store)
	taskRepo := database.NewTaskRepository(store)

	var (
		events   usecase.EventPublisher
		rabbitMQ *queue.RabbitMQ
	)
	if cfg.MessagingEnabled() {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			log.Printf("⚠️ RabbitMQ unavailable, lead events disabled: %v", err)
		} else {
			defer rabbitMQ.Close()
			events = queue.NewProducer(rabbitMQ.Ch)
		}
	}

	// 2. Use cases
	recorder := appmiddleware.PrometheusRecorder{}
	leads := usecase.NewLeadService(leadRepo, usecase.NewLeadStore(), events, authCtx, recorder)
	tasks := usecase.NewTaskService(taskRepo, usecase.NewTaskStore(), recorder)
	selection := usecase.NewSelection(leads)
	imports := usecase.NewImportRegistry(leadRepo, leads, events, authCtx, recorder)

	authCtx.Subscribe(func(ctx context.Context, event usecase.AuthEvent, session *entity.Session) {
		appmiddleware.RecordAuthEvent(event.String())

		switch event {
		case usecase.AuthInitialSession, usecase.AuthSignedIn:
			if session == nil {
				return
			}
			if err := leads.Load(ctx); err != nil {
				log.Printf("⚠️ [AUTH] initial lead load: %v", err)
			}
			if err := tasks.LoadAll(ctx); err != nil {
				log.Printf("⚠️ [AUTH] initial task load: %v", err)
			}
		case usecase.AuthSignedOut:
			imports.Reset()
			selection.Clear()
			leads.Store.Reset()
			tasks.Store.Reset()
		}
	})

	// 3. Workers
	if rabbitMQ != nil && cfg.MailEnabled() {
		sender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
		notifications := queue.NewWorker(rabbitMQ.Ch, sender)
		go func() {
			if err := notifications.Start(ctx, queue.QueueName); err != nil {
				log.Printf("❌ notification worker: %v", err)
			}
		}()
	}

	authCtx.Start(ctx, cfg.SupabaseRefreshToken)
	go worker.NewSessionRefreshWorker(authCtx).Start(ctx)

	// 4. Handlers
	limiter := handlers.NewRateLimiter(10, time.Minute)
	defer limiter.Stop()

	probes := map[string]handlers.Pinger{
		"database": store,
		"auth":     handlers.PingFunc(authClient.Health),
		"rabbitmq": nil,
	}
	if rabbitMQ != nil {
		probes["rabbitmq"] = handlers.PingFunc(func(context.Context) error {
			if !rabbitMQ.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		})
	}

	router := newRouter(cfg.CORSOrigins, routes{
		Health:      handlers.NewHealthHandler(probes),
		Auth:        handlers.NewAuthHandler(authCtx),
		Leads:       handlers.NewLeadHandler(leads),
		Selection:   handlers.NewSelectionHandler(selection, leads.Store),
		Tasks:       handlers.NewTaskHandler(tasks),
		Imports:     handlers.NewImportHandler(imports),
		Validate:    handlers.NewValidationHandler(leadRepo),
		Sessions:    authCtx,
		AuthLimiter: limiter,
	})

	serve(ctx, addr, router, func() {
		imports.Reset()
		imports.Wait()
	})
}

// serve runs the server until ctx is done, then drains it. drain runs after the
// listener has stopped accepting requests.
func serve(ctx context.Context, addr string, h http.Handler, drain func()) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🔥 GlassFlow CRM API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("⚠️ Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ shutdown: %v", err)
	}
	if drain != nil {
		drain()
	}
}
