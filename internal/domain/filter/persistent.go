package filter

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/corey/intake/internal/ports"
)

// PersistentAcceptOnce is an accept-once filter whose memory survives
// restarts. Each accepted file is stored under prefix+path with its
// modification time; a file is accepted again when its modification time
// changes.
type PersistentAcceptOnce struct {
	store  ports.MetadataStore
	prefix string
	logger *slog.Logger
}

// NewPersistentAcceptOnce returns a filter backed by store. A nil logger
// means slog.Default().
func NewPersistentAcceptOnce(store ports.MetadataStore, prefix string, logger *slog.Logger) *PersistentAcceptOnce {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistentAcceptOnce{store: store, prefix: prefix, logger: logger}
}

// Filter implements ports.Filter. Store failures reject the file for this
// round; it is offered again on the next scan.
func (f *PersistentAcceptOnce) Filter(files []string) []string {
	var out []string
	for _, file := range files {
		if f.accept(file) {
			out = append(out, file)
		}
	}
	return out
}

func (f *PersistentAcceptOnce) accept(file string) bool {
	info, err := os.Stat(file)
	if err != nil {
		return false
	}
	key := f.prefix + file
	value := strconv.FormatInt(info.ModTime().UnixMilli(), 10)

	old, exists, err := f.store.PutIfAbsent(key, value)
	if err != nil {
		f.logger.Error("metadata store put", "path", file, "error", err)
		return false
	}
	if !exists {
		return true
	}
	if old == value {
		return false
	}
	replaced, err := f.store.Replace(key, old, value)
	if err != nil {
		f.logger.Error("metadata store replace", "path", file, "error", err)
		return false
	}
	return replaced
}

// Remove implements ports.ResettableFilter.
func (f *PersistentAcceptOnce) Remove(file string) bool {
	_, ok, err := f.store.Remove(f.prefix + file)
	if err != nil {
		f.logger.Error("metadata store remove", "path", file, "error", err)
		return false
	}
	return ok
}
