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

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.SetPrefix("lg/athlete-dev-go-api: ")
	log.SetFlags(log.LstdFlags)

	// A missing .env is fine in deployed environments where vars are injected.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := getDBPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	var accessorCache cache = noopCache{}
	if cfg.RedisURL != "" {
		rc, err := newRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Fatal(err)
		}
		defer rc.Close()
		accessorCache = rc
		log.Printf("accessor cache: redis (ttl %s)", cfg.CacheTTL)
	} else {
		log.Println("accessor cache: disabled (REDIS_URL not set)")
	}

	h := &Handler{
		db:     pool,
		tokens: tokenService{secret: []byte(cfg.JWTSecret), issuer: cfg.JWTIssuer, ttl: cfg.AccessTTL},
		cache:  accessorCache,
		hub:    newRealtimeHub(),
	}

	router := gin.Default()
	router.SetTrustedProxies(nil)
	h.registerRoutes(router)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
