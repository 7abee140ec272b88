package config

// Behavior holds resolution policy knobs
type Behavior struct {
	// ExpandInstalledSubtrees keeps expanding the dependency subtree of an
	// already-installed dependency even though the dependency itself is
	// skipped. Observed installer behavior; kept configurable.
	ExpandInstalledSubtrees bool `koanf:"expand_installed_subtrees"`

	// RetryTapFetch retries a failed formula lookup once after fetching
	// the missing tap.
	RetryTapFetch bool `koanf:"retry_tap_fetch"`
}

// Build holds isolated build settings
type Build struct {
	// EnvAllowList names the only environment variables inherited by the
	// build subprocess.
	EnvAllowList []string `koanf:"env_allowlist"`

	// TimeoutMinutes bounds one build subprocess. Zero means no timeout.
	TimeoutMinutes int `koanf:"timeout_minutes"`
}

// Bottle holds bottle policy settings
type Bottle struct {
	// ForcedFormulae are always poured from a bottle when one exists,
	// regardless of other flags (platform-designated system packages).
	ForcedFormulae []string `koanf:"forced_formulae"`

	// BlockedFormulae are never poured from a bottle.
	BlockedFormulae []string `koanf:"blocked_formulae"`
}

// Config is the root configuration
type Config struct {
	Behavior Behavior `koanf:"behavior"`
	Build    Build    `koanf:"build"`
	Bottle   Bottle   `koanf:"bottle"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Behavior: Behavior{
			ExpandInstalledSubtrees: true,
			RetryTapFetch:           true,
		},
		Build: Build{
			EnvAllowList:   []string{"HOME", "PATH", "TERM", "LOGNAME", "USER", "LANG", "LC_ALL", "TMPDIR"},
			TimeoutMinutes: 0,
		},
		Bottle: Bottle{},
	}
}
