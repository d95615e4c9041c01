package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/susu3304/warikan/internal/config"
	"github.com/susu3304/warikan/internal/db"
	"github.com/susu3304/warikan/internal/relay"
	"github.com/susu3304/warikan/internal/room"
)

type API struct {
	router  *mux.Router
	store   *room.Store
	archive db.Archive
	config  *config.Config
	now     func() time.Time
	server  *http.Server
}

// New wires the HTTP surface. archive may be nil, in which case the backup
// endpoints answer 503.
func New(cfg *config.Config, store *room.Store, archive db.Archive) *API {
	api := &API{
		router:  mux.NewRouter(),
		store:   store,
		archive: archive,
		config:  cfg,
		now:     time.Now,
	}

	api.setupRoutes()
	api.server = &http.Server{
		Addr:              cfg.WebBind,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/up", a.handleUp).Methods("GET", "HEAD")
	a.router.Handle("/ws", relay.NewHandler(a.store, a.config.AllowedOrigins...))

	a.router.HandleFunc("/api/rooms", a.handleListRooms).Methods("GET")
	a.router.HandleFunc("/api/room/{roomId}", a.handleGetRoom).Methods("GET")
	a.router.HandleFunc("/api/room/{roomId}/settlement", a.handleSettlement).Methods("GET")
	a.router.HandleFunc("/api/room/{roomId}/export", a.handleExport).Methods("GET")
	a.router.HandleFunc("/api/room/{roomId}/report.csv", a.handleReport).Methods("GET")
	a.router.HandleFunc("/api/room/{roomId}/backups", a.handleSaveBackup).Methods("POST")
	a.router.HandleFunc("/api/room/{roomId}/backups", a.handleListBackups).Methods("GET")
	a.router.HandleFunc("/api/backups/{id}", a.handleGetBackup).Methods("GET")

	// Web interface
	if a.config.StaticDir != "" {
		a.router.PathPrefix("/").Handler(http.FileServer(http.Dir(a.config.StaticDir))).Methods("GET")
	} else {
		a.router.HandleFunc("/", a.handleWebInterface).Methods("GET")
	}
}

// Handler returns the router wrapped in CORS.
func (a *API) Handler() http.Handler {
	// When AllowedOrigins is "*", AllowCredentials must stay false
	corsOptions := cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until Shutdown is called; it returns nil on a clean shutdown.
func (a *API) Start() error {
	log.Printf("API server listening on http://%s", a.config.WebBind)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
