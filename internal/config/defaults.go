package config

const (
	defaultDirectory      = "~/intake/inbox"
	defaultOrder          = "name"
	defaultWatchEvent     = "create"
	defaultStorePath      = "~/.local/share/intake/metadata.db"
	defaultKeyPrefix      = "intake:"
	defaultHTTPBind       = "127.0.0.1:7488"
	defaultLogFormat      = "text"
	defaultLogLevel       = "info"
	defaultAutoCreate     = true
	defaultIgnoreHidden   = true
	defaultAcceptOnce     = true
	defaultSkipHiddenDirs = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Source: Source{
			Directory:           defaultDirectory,
			AutoCreateDirectory: defaultAutoCreate,
			Order:               defaultOrder,
		},
		Watch: Watch{
			Events:         []string{defaultWatchEvent},
			SkipHiddenDirs: defaultSkipHiddenDirs,
		},
		Filter: Filter{
			IgnoreHidden: defaultIgnoreHidden,
			AcceptOnce:   defaultAcceptOnce,
			StorePath:    defaultStorePath,
			KeyPrefix:    defaultKeyPrefix,
		},
		Daemon: Daemon{
			HTTPBind: defaultHTTPBind,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
