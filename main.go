// Package main, takas backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//   1.  Config'i yükle
//   2.  Database'i başlat (embedded migration'larla)
//   3.  Repository'leri oluştur (DB bağlantısı ile)
//   4.  WebSocket Hub'ı başlat
//   5.  Service'leri oluştur (repository'ler + hub ile)
//   6.  Hub'ın üyelik callback'ini bağla
//   7.  Handler'ları oluştur (service'ler ile)
//   8.  Middleware'ları oluştur
//   9.  HTTP router'ı kur, route'ları bağla
//  10.  CORS yapılandır
//  11.  HTTP Server'ı başlat
//  12.  Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/denizyurt/takas/config"
	"github.com/denizyurt/takas/database"
	"github.com/denizyurt/takas/handlers"
	"github.com/denizyurt/takas/middleware"
	"github.com/denizyurt/takas/pkg/mail"
	"github.com/denizyurt/takas/pkg/ratelimit"
	"github.com/denizyurt/takas/repository"
	"github.com/denizyurt/takas/services"
	"github.com/denizyurt/takas/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] takas server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to open embedded migrations: %v", err)
	}

	db, err := database.New(cfg.Database.Path, migrationsFS)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Repository Layer ───
	//
	// Her NewSQLite* fonksiyonu aynı *sql.DB'yi alır — Go'nun sql.DB'si
	// thread-safe connection pool'dur, paylaşılması güvenlidir.
	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	sessionRepo := repository.NewSQLiteSessionRepo(db.Conn)
	listingRepo := repository.NewSQLiteListingRepo(db.Conn)
	interestRepo := repository.NewSQLiteInterestRepo(db.Conn)
	threadRepo := repository.NewSQLiteThreadRepo(db.Conn)
	messageRepo := repository.NewSQLiteMessageRepo(db.Conn)
	reactionRepo := repository.NewSQLiteReactionRepo(db.Conn)
	receiptRepo := repository.NewSQLiteReceiptRepo(db.Conn)

	// ─── 4. WebSocket Hub ───
	//
	// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır.
	// `go hub.Run()` ayrı bir goroutine'de event loop başlatır:
	// register/unregister channel'larını dinler ve client map'ini günceller.
	// Hub aynı zamanda EventPublisher interface'ini implement eder —
	// service'ler hub'a doğrudan bağımlı olmak yerine interface üzerinden erişir.
	hub := ws.NewHub()
	go hub.Run()

	// ─── 5. Service Layer ───
	mailer := mail.NewNoopSender()
	if cfg.Mail.APIKey != "" {
		mailer = mail.NewResendSender(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.AppURL)
		log.Println("[main] offline message notifications enabled (resend)")
	}

	authService := services.NewAuthService(
		userRepo,
		sessionRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	listingService := services.NewListingService(listingRepo)
	interestService := services.NewInterestService(db.Conn, interestRepo, listingRepo, threadRepo, hub)
	threadService := services.NewThreadService(threadRepo, interestRepo, listingRepo, userRepo, receiptRepo)
	messageService := services.NewMessageService(messageRepo, threadRepo, interestRepo, reactionRepo, userRepo, hub, mailer)
	reactionService := services.NewReactionService(reactionRepo, messageRepo, threadRepo, hub)
	receiptService := services.NewReceiptService(receiptRepo, threadRepo, interestRepo, hub)

	uploadService, err := services.NewUploadService(threadRepo, interestRepo, cfg.Upload.Dir, cfg.Upload.MaxSize)
	if err != nil {
		log.Fatalf("[main] failed to initialize upload service: %v", err)
	}

	// ─── 6. Hub Üyelik Callback'i ───
	//
	// Hub ws paketinde yaşıyor, ama üyelik bilgisi service katmanında.
	// Hub'ın service'lere bağımlı olmasını istemiyoruz (Dependency Inversion) —
	// main.go wire-up noktasıdır, callback'i burada bağlarız.
	// Callback Hub mutex'i DIŞINDA çağrılır; thread service kısa TTL'li
	// cache kullandığı için her subscribe DB'ye gitmez.
	hub.SetMembershipChecker(func(userID, threadID string) bool {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return threadService.IsParticipant(ctx, userID, threadID)
	})

	// ─── 7. Handler Layer ───
	messageLimiter := ratelimit.NewMessageRateLimiter(10, 10*time.Second, 5*time.Second)
	defer messageLimiter.Close()

	authHandler := handlers.NewAuthHandler(authService)
	listingHandler := handlers.NewListingHandler(listingService)
	interestHandler := handlers.NewInterestHandler(interestService)
	threadHandler := handlers.NewThreadHandler(threadService)
	messageHandler := handlers.NewMessageHandler(messageService, messageLimiter)
	reactionHandler := handlers.NewReactionHandler(reactionService)
	receiptHandler := handlers.NewReceiptHandler(receiptService)
	uploadHandler := handlers.NewUploadHandler(uploadService, cfg.Upload.MaxSize)
	wsHandler := ws.NewHandler(hub, authService)

	// ─── 8. Middleware ───
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)

	// ─── 9. HTTP Router ───
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"takas"}`)
	})

	// Auth — public endpoint'ler (token gerekmez)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	mux.Handle("GET /api/users/me", authMiddleware.Require(http.HandlerFunc(authHandler.Me)))

	// Listings — ilan CRUD
	mux.Handle("GET /api/listings", authMiddleware.Require(
		http.HandlerFunc(listingHandler.List)))
	mux.Handle("GET /api/listings/mine", authMiddleware.Require(
		http.HandlerFunc(listingHandler.ListMine)))
	mux.Handle("GET /api/listings/{id}", authMiddleware.Require(
		http.HandlerFunc(listingHandler.Get)))
	mux.Handle("POST /api/listings", authMiddleware.Require(
		http.HandlerFunc(listingHandler.Create)))
	mux.Handle("DELETE /api/listings/{id}", authMiddleware.Require(
		http.HandlerFunc(listingHandler.Delete)))

	// Interests — takas isteği yaşam döngüsü: pending → accepted → confirmed
	mux.Handle("POST /api/listings/{id}/interests", authMiddleware.Require(
		http.HandlerFunc(interestHandler.Create)))
	mux.Handle("GET /api/interests/incoming", authMiddleware.Require(
		http.HandlerFunc(interestHandler.ListIncoming)))
	mux.Handle("GET /api/interests/sent", authMiddleware.Require(
		http.HandlerFunc(interestHandler.ListSent)))
	mux.Handle("POST /api/interests/{id}/accept", authMiddleware.Require(
		http.HandlerFunc(interestHandler.Accept)))
	mux.Handle("POST /api/interests/{id}/confirm", authMiddleware.Require(
		http.HandlerFunc(interestHandler.ConfirmPickup)))

	// Threads — konuşma listesi ve detayı
	mux.Handle("GET /api/threads", authMiddleware.Require(
		http.HandlerFunc(threadHandler.List)))
	mux.Handle("GET /api/threads/{id}", authMiddleware.Require(
		http.HandlerFunc(threadHandler.Get)))

	// Messages — geçmiş, gönderme, düzenleme, soft delete
	mux.Handle("GET /api/threads/{id}/messages", authMiddleware.Require(
		http.HandlerFunc(messageHandler.List)))
	mux.Handle("POST /api/threads/{id}/messages", authMiddleware.Require(
		http.HandlerFunc(messageHandler.Send)))
	mux.Handle("PATCH /api/messages/{id}", authMiddleware.Require(
		http.HandlerFunc(messageHandler.Edit)))
	mux.Handle("DELETE /api/messages/{id}", authMiddleware.Require(
		http.HandlerFunc(messageHandler.Delete)))

	// Reactions — toggle, gate kilidine tabi DEĞİL
	mux.Handle("POST /api/messages/{id}/reactions", authMiddleware.Require(
		http.HandlerFunc(reactionHandler.Toggle)))

	// Receipts — okuma watermark'ları
	mux.Handle("PUT /api/threads/{id}/receipt", authMiddleware.Require(
		http.HandlerFunc(receiptHandler.MarkSeen)))
	mux.Handle("GET /api/threads/{id}/receipts", authMiddleware.Require(
		http.HandlerFunc(receiptHandler.GetForThread)))

	// Uploads — mesaj eki yükleme ve servis
	mux.Handle("POST /api/threads/{id}/upload", authMiddleware.Require(
		http.HandlerFunc(uploadHandler.Upload)))
	mux.HandleFunc("GET /api/uploads/{name}", uploadHandler.Serve)

	// WebSocket — token query parameter ile authenticate edilir
	//
	// Neden auth middleware kullanmıyoruz?
	// WebSocket upgrade sırasında tarayıcılar custom HTTP header gönderemez.
	// Bu yüzden JWT token URL query parameter olarak gönderilir:
	//   ws://server/ws?token=JWT_TOKEN
	// WS handler kendi içinde token doğrulaması yapar.
	mux.HandleFunc("GET /ws", wsHandler.HandleConnection)

	// ─── 10. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000", // web dev server
			"http://localhost:1420", // Tauri dev
			"tauri://localhost",     // Tauri production
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            false,
	})

	handler := corsHandler.Handler(mux)

	// ─── 11. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Süresi dolmuş refresh session'ları periyodik temizle.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sessionRepo.DeleteExpired(context.Background()); err != nil {
					log.Printf("[main] session cleanup failed: %v", err)
				}
			case <-cleanupDone:
				return
			}
		}
	}()

	// ─── 12. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")
	close(cleanupDone)

	// Önce WebSocket bağlantılarını kapat — client'lar kopuşu hemen görür.
	// Sonra HTTP server'ı kapat — yeni request kabul etmeyi durdurur,
	// mevcut request'lerin bitmesini bekler (5sn timeout).
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
