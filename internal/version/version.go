package version

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X github.com/winordie-47/linuxbrew1/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X github.com/winordie-47/linuxbrew1/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X github.com/winordie-47/linuxbrew1/internal/version.Date={{.Date}}
)
