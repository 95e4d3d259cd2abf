// Package version provides the mockredis version string.
// The version is set at build time via -ldflags.
package version

// Version is the current mockredis version.
// Override at build time: go build -ldflags "-X github.com/mockredis/mockredis/internal/version.Version=1.1.0"
var Version = "1.0.0"

// BuildTime is the build timestamp.
// Override at build time: go build -ldflags "-X github.com/mockredis/mockredis/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime = "unknown"

// RedisCompat is the server version reported to clients that sniff INFO.
const RedisCompat = "6.2.0"
