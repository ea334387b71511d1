package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"burstpick/internal/models"
	"burstpick/internal/session"
	"burstpick/internal/storage"
)

//go:embed static/*
var staticFiles embed.FS

// Store persists the session after every change
type Store interface {
	SaveSession(state *models.SessionState) error
	RecordScan(rec storage.ScanRecord) error
}

// DefaultHost keeps the API, which can delete files, off the network
const DefaultHost = "127.0.0.1"

// Options configures a Server
type Options struct {
	Host        string // DefaultHost when empty
	Port        int
	IdleTimeout time.Duration
	Settings    models.Settings // used by rescans that send no settings
}

// Server represents the web server
type Server struct {
	session     *session.Session
	lister      session.Lister
	store       Store
	settings    models.Settings
	logger      *slog.Logger
	host        string
	port        int
	idleTimeout time.Duration
	httpServer  *http.Server

	// Idle timeout management
	mu           sync.Mutex
	lastActivity time.Time
	tabActive    bool
	clients      map[*websocket.Conn]struct{}
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// New creates a new Server. store may be nil.
func New(sess *session.Session, lister session.Lister, store Store, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	return &Server{
		session:      sess,
		lister:       lister,
		store:        store,
		settings:     opts.Settings,
		logger:       logger,
		host:         opts.Host,
		port:         opts.Port,
		idleTimeout:  opts.IdleTimeout,
		lastActivity: time.Now(),
		clients:      make(map[*websocket.Conn]struct{}),
		shutdownChan: make(chan struct{}),
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.activityMiddleware)
	api.HandleFunc("/groups", s.handleGroups).Methods("GET")
	api.HandleFunc("/groups/{id:[0-9]+}", s.handleGroup).Methods("GET")
	api.HandleFunc("/groups/{id:[0-9]+}/leader", s.handleSetLeader).Methods("POST")
	api.HandleFunc("/groups/{id:[0-9]+}/leader", s.handleClearLeader).Methods("DELETE")
	api.HandleFunc("/groups/{id:[0-9]+}/delete-rejects", s.handleDeleteRejects).Methods("POST")
	api.HandleFunc("/groups/{id:[0-9]+}/collapse", s.handleCollapse).Methods("POST")
	api.HandleFunc("/images", s.handleImages).Methods("GET")
	api.HandleFunc("/image", s.handleImage).Methods("GET")
	api.HandleFunc("/metadata", s.handleMetadata).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// WebSocket for connection monitoring
	r.HandleFunc("/ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))

	return r
}

// Addr is the address Start listens on
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Start starts the server and blocks until it is shut down
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.idleTimeout > 0 {
		go s.idleTimeoutChecker()
	}

	go s.handleShutdownSignals()

	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleShutdownSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		fmt.Println("\nShutting down server...")
	case <-s.shutdownChan:
		fmt.Println("\nIdle timeout reached. Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("shutdown incomplete", "error", err)
	}
}

func (s *Server) idleTimeoutChecker() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.idleFor() >= s.idleTimeout {
				s.shutdownOnce.Do(func() { close(s.shutdownChan) })
				return
			}
		case <-s.shutdownChan:
			return
		}
	}
}

// idleFor returns how long the UI has been idle. A visible tab or an open
// socket counts as activity.
func (s *Server) idleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tabActive || len(s.clients) > 0 {
		s.lastActivity = time.Now()
		return 0
	}
	return time.Since(s.lastActivity)
}

func (s *Server) recordActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Server) setTabActive(active bool) {
	s.mu.Lock()
	s.tabActive = active
	if active {
		s.lastActivity = time.Now()
	}
	s.mu.Unlock()
}

func (s *Server) activityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.recordActivity()
		next.ServeHTTP(w, r)
	})
}

// persist saves the session; failures are logged, the change stays in memory
func (s *Server) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSession(s.session.Snapshot()); err != nil {
		s.logger.Warn("failed to save session", "error", err)
	}
}
