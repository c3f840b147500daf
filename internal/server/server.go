package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jcnich/App-UAT-Tool/internal/config"
	"github.com/jcnich/App-UAT-Tool/internal/database"
	"github.com/jcnich/App-UAT-Tool/internal/report"
)

type Server struct {
	cfg       *config.Config
	db        *database.DB
	hub       *Hub
	reportGen *report.Generator
	mux       *http.ServeMux
}

func New(cfg *config.Config, db *database.DB) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		db:        db,
		hub:       NewHub(),
		reportGen: report.NewGenerator(db, cfg.Export.FontRegular, cfg.Export.FontBold),
		mux:       http.NewServeMux(),
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	slog.Info("starting server", "addr", addr)

	handler := recoveryMiddleware(securityHeaders(loggingMiddleware(s.mux)))
	return http.ListenAndServe(addr, handler)
}

func (s *Server) registerRoutes() {
	// Checklist catalog
	s.mux.HandleFunc("/api/checklist", s.handleAPIChecklist)
	s.mux.HandleFunc("/api/checklist/import", s.handleAPIImport)
	s.mux.HandleFunc("/api/sections", s.handleAPISections)
	s.mux.HandleFunc("/api/sections/", s.handleAPISection)
	s.mux.HandleFunc("/api/items/reorder", s.handleAPIItemsReorder)
	s.mux.HandleFunc("/api/items/delete", s.handleAPIItemsDelete)
	s.mux.HandleFunc("/api/items/", s.handleAPIItem)

	// Reviews
	s.mux.HandleFunc("/api/reviews", s.handleAPIReviews)
	s.mux.HandleFunc("/api/reviews/bulk-archive", s.handleAPIBulkArchive)
	s.mux.HandleFunc("/api/reviews/bulk-unarchive", s.handleAPIBulkUnarchive)
	s.mux.HandleFunc("/api/reviews/bulk-delete", s.handleAPIBulkDelete)
	s.mux.HandleFunc("/api/reviews/", s.handleAPIReview)

	s.mux.HandleFunc("/api/stats", s.handleAPIStats)

	// WebSocket
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}
