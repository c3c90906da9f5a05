package config

const (
	defaultReplayDir      = "~/Slippi"
	defaultDataDir        = "~/.local/share/slipscan"
	defaultCacheDir       = "~/.cache/slipscan"
	defaultLogDir         = "~/.local/share/slipscan/logs"
	defaultExtension      = ".slp"
	defaultCachePath      = "~/.cache/slipscan/scancache.json"
	defaultGraphQLURL     = "https://internal.slippi.gg/graphql"
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	defaultLookupTimeout  = 15
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultFollowSymlinks = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ReplayDir: defaultReplayDir,
			DataDir:   defaultDataDir,
			CacheDir:  defaultCacheDir,
			LogDir:    defaultLogDir,
		},
		Scanner: Scanner{
			Workers:        0,
			Extension:      defaultExtension,
			FollowSymlinks: defaultFollowSymlinks,
		},
		ScanCache: ScanCache{
			Enabled: true,
			Path:    defaultCachePath,
		},
		Slippi: Slippi{
			Enabled:        true,
			GraphQLURL:     defaultGraphQLURL,
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultLookupTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
