package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/corey/intake/internal/adapters/ahocorasick"
	fsw "github.com/corey/intake/internal/adapters/fsnotify"
	"github.com/corey/intake/internal/config"
	"github.com/corey/intake/internal/domain/filter"
	"github.com/corey/intake/internal/ports"
)

// BuildFilter assembles the filter chain from configuration: cheap name
// checks first, then the age gate, then accept-once memory. store is only
// used when cfg.Persistent is set.
func BuildFilter(cfg config.Filter, store ports.MetadataStore, logger *slog.Logger) (ports.Filter, error) {
	var chain []ports.Filter

	if cfg.IgnoreHidden {
		chain = append(chain, filter.IgnoreHidden{})
	}
	if cfg.Pattern != "" {
		g, err := filter.NewGlob(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		chain = append(chain, g)
	}
	if cfg.Regex != "" {
		r, err := filter.NewRegexp(cfg.Regex)
		if err != nil {
			return nil, err
		}
		chain = append(chain, r)
	}
	if len(cfg.NameContains) > 0 {
		chain = append(chain, ahocorasick.NewNameFilter(cfg.NameContains))
	}
	if len(cfg.NameExcludes) > 0 {
		chain = append(chain, ahocorasick.NewExcludeFilter(cfg.NameExcludes))
	}
	if cfg.MinAgeSeconds > 0 {
		chain = append(chain, filter.NewLastModified(time.Duration(cfg.MinAgeSeconds)*time.Second))
	}

	switch {
	case cfg.Persistent:
		if store == nil {
			return nil, fmt.Errorf("persistent filter requires a metadata store")
		}
		chain = append(chain, filter.NewPersistentAcceptOnce(store, cfg.KeyPrefix, logger))
	case cfg.AcceptOnce && cfg.AcceptOnceCapacity > 0:
		once, err := filter.NewBoundedAcceptOnce(cfg.AcceptOnceCapacity)
		if err != nil {
			return nil, err
		}
		chain = append(chain, once)
	case cfg.AcceptOnce:
		chain = append(chain, filter.NewAcceptOnce())
	}

	return filter.NewComposite(chain...), nil
}

// DirPredicate decides which subdirectories are scanned or watched.
// Nil means all.
func DirPredicate(cfg *config.Config) func(string) bool {
	ignore := fsw.IgnoreDirs(cfg.Source.IgnoreDirs...)
	skipHidden := cfg.Watch.SkipHiddenDirs
	if len(cfg.Source.IgnoreDirs) == 0 && !skipHidden {
		return nil
	}
	return func(dir string) bool {
		if skipHidden && !fsw.SkipHidden(dir) {
			return false
		}
		return ignore(dir)
	}
}
