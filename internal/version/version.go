// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/fbz-tec/crudx/internal/version.AppVersion=...".
package version

var (
	AppVersion = "dev"
	BuildTime  = "unknown"
	GitCommit  = "none"
)
