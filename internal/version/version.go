// Package version holds fusegate build metadata injected via ldflags:
//
//	-ldflags "-X github.com/fusegate/fusegate/internal/version.Version=v1.2.3"
//
// main logs these at startup so deployed binaries are identifiable.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
