package main

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"wyze-camera-server/config"
	"wyze-camera-server/handlers"
	"wyze-camera-server/middleware"
	"wyze-camera-server/services"
	"wyze-camera-server/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	credStore := store.NewCredentialStore(cfg.Wyze.TokenFile)
	wyze := services.NewWyzeService(cfg.Wyze, credStore)
	cache := services.NewCameraCache(wyze)

	if credStore.Load() {
		log.Println("[Main] Loaded cached Wyze tokens")
		if _, err := cache.List(); err != nil {
			log.Printf("[Main] Cached tokens rejected: %v", err)
			credStore.Clear()
		}
	}

	if !wyze.Authenticated() {
		if cfg.Wyze.Email == "" || cfg.Wyze.Password == "" || cfg.Wyze.APIKey == "" || cfg.Wyze.KeyID == "" {
			log.Fatal("[Main] No valid tokens and no credentials: set WYZE_EMAIL, WYZE_PASSWORD, API_KEY and API_ID")
		}
		log.Println("[Main] Logging in to Wyze...")
		if _, err := wyze.Login(); err != nil {
			log.Fatalf("[Main] Login failed: %v", err)
		}
		log.Println("[Main] Login successful, tokens cached")
	}

	cameras, err := cache.List()
	if err != nil {
		log.Printf("[Main] Initial camera fetch failed: %v", err)
	} else {
		log.Printf("[Main] Found %d cameras", len(cameras))
		for _, cam := range cameras {
			log.Printf("[Main]   %s (%s) -> /api/%s", cam.Nickname, cam.ModelName, cam.NameURI)
		}
	}

	router := setupRouter(cfg, cache, wyze)

	log.Printf("[Main] Server starting on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func setupRouter(cfg *config.Config, cache *services.CameraCache, wyze *services.WyzeService) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			// Allow requests with no origin (curl, <img> tags, native apps).
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			host := u.Hostname()
			return host == "localhost" || host == "127.0.0.1"
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	cameraHandler := handlers.NewCameraHandler(cache, wyze)
	signalingHandler := handlers.NewSignalingHandler(cache, wyze)

	router.GET("/health", func(c *gin.Context) {
		payload := gin.H{
			"status":        "ok",
			"authenticated": wyze.Authenticated(),
			"cameras":       cache.Count(),
		}
		if expiresAt, ok := wyze.TokenExpiresAt(); ok {
			payload["token_expires_at"] = expiresAt.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, payload)
	})

	protected := router.Group("/")
	if cfg.Server.APIToken != "" {
		protected.Use(middleware.TokenAuth(cfg.Server.APIToken))
	}

	api := protected.Group("/api")
	{
		api.GET("", cameraHandler.GetCameras)
		api.GET("/refresh", cameraHandler.RefreshCameras)
		api.GET("/:name_uri", cameraHandler.GetCamera)
		api.GET("/:name_uri/info", cameraHandler.GetCameraInfo)
		api.GET("/:name_uri/:action", cameraHandler.CameraAction)
		api.POST("/:name_uri/:action", cameraHandler.CameraAction)
		api.PUT("/:name_uri/:action", cameraHandler.CameraAction)
	}

	protected.GET("/signaling/:name_uri", signalingHandler.GetSignaling)
	protected.GET("/signaling/:name_uri/ws", signalingHandler.ProxySignaling)
	protected.GET("/thumb/:name_uri", cameraHandler.GetThumbnail)

	return router
}
