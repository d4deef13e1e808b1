// Package app wires configuration, scanners, filters and transports into a
// running intake daemon.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/corey/intake/internal/adapters/bbolt"
	"github.com/corey/intake/internal/adapters/dirlist"
	"github.com/corey/intake/internal/adapters/flock"
	fsw "github.com/corey/intake/internal/adapters/fsnotify"
	"github.com/corey/intake/internal/adapters/socket"
	"github.com/corey/intake/internal/adapters/web"
	"github.com/corey/intake/internal/config"
	"github.com/corey/intake/internal/domain/inbound"
	"github.com/corey/intake/internal/ports"
)

// Claims is the locker surface the app uses: claiming for the Source, plus
// release and inspection for the transports.
type Claims interface {
	ports.Locker
	IsLocked(file string) bool
	Close() error
}

// App is the top-level container wiring all components together.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Source    *inbound.Source
	Scanner   ports.Scanner
	Watch     *fsw.Scanner // nil in snapshot mode
	Locker    Claims       // nil when locking is disabled
	Store     *bbolt.Store // nil unless the accept-once filter is persistent
	Server    *socket.Server
	WebServer *web.Server // nil when HTTP is disabled

	sockPath string
	started  time.Time
}

// New creates an App with all dependencies wired. Does not start services.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Filter.Persistent {
		store, err := bbolt.NewStore(cfg.Filter.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = store
	}

	var store ports.MetadataStore
	if a.Store != nil {
		store = a.Store
	}
	filter, err := BuildFilter(cfg.Filter, store, logger)
	if err != nil {
		a.closeStore()
		return nil, err
	}

	dirPredicate := DirPredicate(cfg)
	if cfg.Watch.Enabled {
		events, err := fsw.ParseEventKinds(cfg.Watch.Events)
		if err != nil {
			a.closeStore()
			return nil, err
		}
		a.Watch = fsw.NewScanner(fsw.Options{
			Events:       events,
			MaxDepth:     cfg.Watch.MaxDepth,
			DirPredicate: dirPredicate,
			Filter:       filter,
			BufferSize:   uint(cfg.Watch.BufferSize),
			Logger:       logger,
		})
		a.Scanner = a.Watch
	} else {
		a.Scanner = dirlist.New(dirlist.Options{
			Filter:       filter,
			Recursive:    cfg.Source.Recursive,
			DirPredicate: dirPredicate,
			Logger:       logger,
		})
	}

	if cfg.Locker.Enabled {
		a.Locker = flock.NewLocker(logger)
	}

	dir, err := inbound.ParseDirectory(cfg.Source.Directory)
	if err != nil {
		a.closeStore()
		return nil, err
	}
	order, err := inbound.ComparatorByName(cfg.Source.Order)
	if err != nil {
		a.closeStore()
		return nil, err
	}
	srcCfg := inbound.Config{
		Directory:           dir,
		Scanner:             a.Scanner,
		Comparator:          order,
		AutoCreateDirectory: cfg.Source.AutoCreateDirectory,
		ScanEachPoll:        cfg.Source.ScanEachPoll,
		Logger:              logger,
	}
	if a.Locker != nil {
		srcCfg.Locker = a.Locker
	}
	a.Source, err = inbound.NewSource(srcCfg)
	if err != nil {
		a.closeStore()
		return nil, err
	}

	a.sockPath = cfg.Daemon.SocketPath
	if a.sockPath == "" {
		a.sockPath = socket.SocketPath(cfg.Source.Directory)
	}
	a.Server = socket.NewServer(a, a.sockPath, logger)
	if cfg.Daemon.HTTPBind != "" {
		a.WebServer = web.NewServer(a, logger)
	}
	return a, nil
}

// Start begins the daemon: the source first, then the socket server and the
// HTTP server. A failing HTTP server is logged, not fatal.
func (a *App) Start() error {
	a.started = time.Now()
	if err := a.Source.Start(); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	if err := a.Server.Start(); err != nil {
		if stopErr := a.Source.Stop(); stopErr != nil {
			a.Logger.Warn("stop source", "error", stopErr)
		}
		return fmt.Errorf("start server: %w", err)
	}
	if a.WebServer != nil {
		if err := a.WebServer.Start(a.Config.Daemon.HTTPBind); err != nil {
			a.Logger.Warn("http server unavailable", "error", err)
			a.WebServer = nil
		}
	}
	return nil
}

// Stop shuts everything down in reverse order and releases held locks and
// the metadata store.
func (a *App) Stop() error {
	if a.WebServer != nil {
		a.WebServer.Stop()
	}
	a.Server.Stop()
	if err := a.Source.Stop(); err != nil {
		a.Logger.Warn("stop source", "error", err)
	}
	if a.Locker != nil {
		if err := a.Locker.Close(); err != nil {
			a.Logger.Warn("release locks", "error", err)
		}
	}
	a.closeStore()
	return nil
}

// SocketPath returns the Unix socket the daemon listens on.
func (a *App) SocketPath() string {
	return a.sockPath
}

// Receive implements socket.Source.
func (a *App) Receive() (*inbound.Message, bool) {
	return a.Source.Receive()
}

// OnFailure implements socket.Source. The claim on the file is released so
// the next Receive can take it again.
func (a *App) OnFailure(msg *inbound.Message) {
	if msg == nil {
		return
	}
	if a.Locker != nil {
		if err := a.Locker.Unlock(msg.Payload); err != nil {
			a.Logger.Warn("release claim", "path", msg.Payload, "error", err)
		}
	}
	a.Source.OnFailure(msg)
}

// Ack implements socket.Source by releasing the claim on path.
func (a *App) Ack(path string) error {
	if a.Locker == nil {
		return nil
	}
	return a.Locker.Unlock(path)
}

// Stats implements socket.Source and web.StatsProvider.
func (a *App) Stats() socket.StatsResult {
	st := a.Source.Stats()
	res := socket.StatsResult{
		Running:    st.Running,
		Directory:  st.Directory,
		QueueDepth: st.QueueDepth,
		Scans:      st.Scans,
		Enqueued:   st.Enqueued,
		Received:   st.Received,
		Refused:    st.Refused,
		Requeued:   st.Requeued,
	}
	if !a.started.IsZero() {
		res.UptimeSeconds = int64(time.Since(a.started).Seconds())
	}
	if a.Watch != nil {
		res.Registrations = a.Watch.Registrations()
	}
	if a.Store != nil {
		if n, err := a.Store.Len(); err == nil {
			res.StoreEntries = n
		}
		if info, err := os.Stat(a.Store.Path()); err == nil {
			res.StoreBytes = info.Size()
		}
	}
	return res
}

func (a *App) closeStore() {
	if a.Store == nil {
		return
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("close store", "error", err)
	}
}
