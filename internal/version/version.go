package version

// Set at build time via -ldflags.
var (
	AppName   = "Guildkeeper"
	Version   = "dev"
	BuildDate = "unknown"
)
