package version

// Set at build time with -ldflags "-X github.com/tristendillon/stager/core/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)
