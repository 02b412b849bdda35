// Package server exposes the onboarding chatbot over HTTP. Clients identify
// themselves with an X-User-ID header and address sessions by their public
// id; numeric database ids never leave the process.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	turnnode "github.com/kaiyuanlo/onboarding-copilot/agent/nodes"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
	uploadx "github.com/kaiyuanlo/onboarding-copilot/agent/upload"
)

type Config struct {
	Addr           string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" split_words:"true" default:"http://localhost:3000"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" split_words:"true" default:"60s"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" split_words:"true" default:"10485760"`
}

// TurnProcessor is the conversational entrypoint the handlers call.
type TurnProcessor interface {
	HandleMessage(ctx context.Context, userID, sessionID int64, text string) (turnnode.GraphOutput, error)
	StartSession(ctx context.Context, userID int64) (*statex.Session, *statex.Record, error)
}

// DocumentProcessor is the upload extraction entrypoint.
type DocumentProcessor interface {
	Process(ctx context.Context, sessionID int64, doc uploadx.Document) (uploadx.Result, error)
}

type Server struct {
	cfg        Config
	store      statex.Store
	processor  TurnProcessor
	documents  DocumentProcessor
	httpServer *http.Server
}

func New(cfg Config, store statex.Store, processor TurnProcessor, documents DocumentProcessor) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		processor: processor,
		documents: documents,
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.router(),
	}
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/chatbot", func(api chi.Router) {
		api.Use(s.requireUser)

		api.Post("/message", s.handleMessage)
		api.Post("/upload-file", s.handleUploadFile)

		api.Post("/sessions", s.handleCreateSession)
		api.Get("/sessions", s.handleListSessions)
		api.Get("/sessions/latest", s.handleLatestSession)
		api.Get("/sessions/{publicID}/messages", s.handleListMessages)

		api.Get("/onboarding/{publicID}", s.handleData)
		api.Get("/export/{publicID}", s.handleExport)
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
