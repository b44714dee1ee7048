package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mpatel-dev/cardvault/internal/api/handlers"
	"github.com/mpatel-dev/cardvault/internal/api/middleware"
	"github.com/mpatel-dev/cardvault/internal/auth"
	"github.com/mpatel-dev/cardvault/internal/cache"
	"github.com/mpatel-dev/cardvault/internal/cards"
	"github.com/mpatel-dev/cardvault/internal/chat"
	"github.com/mpatel-dev/cardvault/internal/config"
	"github.com/mpatel-dev/cardvault/internal/embedding"
	"github.com/mpatel-dev/cardvault/internal/llm"
	"github.com/mpatel-dev/cardvault/internal/queue"
	"github.com/mpatel-dev/cardvault/internal/search"
	"github.com/mpatel-dev/cardvault/internal/storage"
	"github.com/mpatel-dev/cardvault/internal/vision"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))

	rl := middleware.NewRateLimiter(rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	store := storage.NewObjectStorage(rt.cfg.Storage.BaseURL, rt.cfg.Storage.ServiceKey)
	analyzer := vision.NewAnalyzer(rt.llmGW, rt.cfg.LLM.VisionModel)
	textEmb := embedding.NewOpenAITextEmbedder(embedding.TextConfig{
		APIKey:  rt.cfg.Embedding.TextAPIKey,
		BaseURL: rt.cfg.Embedding.TextBaseURL,
		Model:   rt.cfg.Embedding.TextModel,
	})
	imageEmb := embedding.NewClipImageEmbedder(embedding.ImageConfig{
		BaseURL: rt.cfg.Embedding.ClipBaseURL,
	})
	queueClient := queue.NewClient(rt.cfg.Redis)

	cardSvc := cards.NewService(rt.db, store, rt.cfg.Storage.Bucket, analyzer, textEmb, imageEmb, queueClient)
	cardStore := search.NewPGCardStore(rt.db)
	embCache := cache.NewEmbeddingCache(cache.NewCache(rt.redis))
	searchSvc := search.NewService(cardStore, textEmb, imageEmb, search.WithEmbeddingCache(embCache))
	assistant := chat.NewAssistant(rt.llmGW, textEmb, cardStore, rt.cfg.LLM.ChatModel)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		cardsH := handlers.NewCardsHandler(cardSvc, analyzer)
		r.Route("/cards", func(r chi.Router) {
			r.Post("/", cardsH.Create)
			r.Get("/", cardsH.List)
			r.Post("/analyze", cardsH.Analyze)
			r.Get("/{id}", cardsH.Get)
			r.Delete("/{id}", cardsH.Delete)
		})

		searchH := handlers.NewSearchHandler(searchSvc)
		r.Post("/search", searchH.Search)

		chatH := handlers.NewChatHandler(assistant)
		r.Route("/chat", func(r chi.Router) {
			r.Post("/", chatH.Chat)
			r.Post("/stream", chatH.ChatStream)
		})
	})

	return r
}
