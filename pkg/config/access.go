package config

// Global configuration instance
var globalConfig *Config

// Initialize sets up the global configuration
func Initialize(cfg *Config) {
	if cfg == nil {
		cfg = Default()
	}
	globalConfig = cfg
}

// Get returns the current configuration
func Get() *Config {
	if globalConfig == nil {
		Initialize(nil)
	}
	return globalConfig
}

// GetBehavior returns resolution policy configuration
func GetBehavior() Behavior {
	return Get().Behavior
}

// GetBuild returns build subprocess configuration
func GetBuild() Build {
	return Get().Build
}

// GetBottle returns bottle policy configuration
func GetBottle() Bottle {
	return Get().Bottle
}
