// Package app wires configuration, storage and the remote client into the
// services each front end (CLI, TUI, MCP) drives.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/chat"
	"github.com/neilberkman/docchat/internal/core/config"
	"github.com/neilberkman/docchat/internal/core/dashboard"
	"github.com/neilberkman/docchat/internal/core/db"
	"github.com/neilberkman/docchat/internal/core/documents"
	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/session"
	"go.uber.org/zap"
)

// ModePreference is the vault key holding the last chat mode.
const ModePreference = "chat_mode"

// ErrNotSignedIn is returned by RequireAuth for anonymous sessions.
var ErrNotSignedIn = errors.New("not signed in, run 'docchat login' first")

// Options override config file values. Empty fields keep the config value.
type Options struct {
	ConfigDir string
	DBPath    string
	APIURL    string
	// Quiet discards logs instead of writing the log file.
	Quiet bool
}

type App struct {
	Config    *config.Config
	Log       *zap.Logger
	DB        *db.DB
	Vault     *db.Vault
	API       *api.Client
	Session   *session.Store
	Chat      *chat.Pipeline
	Documents *documents.Service
	Dashboard *dashboard.Service
}

// Open loads config and builds every service. The session is left
// unresolved; call Restore before using it.
func Open(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	if opts.APIURL != "" {
		cfg.APIURL = strings.TrimRight(opts.APIURL, "/")
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = cfg.DBPath()
	}

	log := zap.NewNop()
	if !opts.Quiet {
		log, err = logging.New(cfg.LogPath(), cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}

	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &App{
		Config: cfg,
		Log:    log,
		DB:     database,
		Vault:  database.Vault(cfg.APIURL),
	}

	a.API = api.New(cfg.APIURL, api.WithTimeout(cfg.Timeout), api.WithLogger(log.Named("api")))
	a.Session = session.NewStore(a.Vault, a.API, log.Named("session"))
	a.API.SetSession(a.Session)

	a.Dashboard = dashboard.New(a.API, cfg.StatsCacheTTL)
	a.Documents = documents.New(a.API, a.Dashboard.Invalidate, log.Named("documents"))
	a.Chat = chat.New(a.API,
		chat.WithLogger(log.Named("chat")),
		chat.WithPageSize(cfg.PageSize),
		chat.WithMode(a.preferredMode()),
	)
	a.Session.Subscribe(a.sessionChanged)

	log.Info("started", zap.String("api_url", cfg.APIURL), zap.String("db", dbPath))
	return a, nil
}

// sessionChanged drops cached server data once nobody is signed in, so the
// next user never sees the previous one's stats or conversations.
func (a *App) sessionChanged(st session.State) {
	if st.Loading || st.Authenticated {
		return
	}
	a.Dashboard.Invalidate()
	a.Chat.Reset()
}

// preferredMode is the stored mode, else the configured default.
func (a *App) preferredMode() models.ChatMode {
	v, err := a.Vault.Preference(ModePreference)
	if err != nil {
		a.Log.Warn("failed to read mode preference", zap.Error(err))
	}
	if mode := models.ChatMode(v); mode.Valid() {
		return mode
	}
	return a.Config.DefaultMode
}

// SetMode switches the chat mode and remembers it for the next run.
func (a *App) SetMode(mode models.ChatMode) error {
	if err := a.Chat.SetMode(mode); err != nil {
		return err
	}
	// preferences belong to the signed-in session
	if !a.Session.State().Authenticated {
		return nil
	}
	if err := a.Vault.SetPreference(ModePreference, string(mode)); err != nil {
		a.Log.Warn("failed to save mode preference", zap.Error(err))
	}
	return nil
}

// Restore resolves the persisted session against the server.
func (a *App) Restore(ctx context.Context) (session.State, error) {
	err := a.Session.Initialize(ctx)
	return a.Session.State(), err
}

// RequireAuth restores the session and fails when nobody is signed in.
func (a *App) RequireAuth(ctx context.Context) error {
	state, err := a.Restore(ctx)
	if err != nil {
		return err
	}
	if !state.Authenticated {
		return ErrNotSignedIn
	}
	return nil
}

// Close flushes logs and closes the database.
func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.DB.Close()
}
