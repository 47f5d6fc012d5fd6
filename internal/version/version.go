package version

// Set at build time with -ldflags "-X github.com/SigitArif/POS/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
