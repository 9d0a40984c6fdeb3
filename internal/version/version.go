// /internal/version/version.go
package version

// AppName is the name reported to remote servers.
const AppName = "relaybot"

// Version is set at build time with -ldflags "-X relaybot/internal/version.Version=...".
var Version = "dev"

// Tag is the short identity string, e.g. "relaybot dev".
func Tag() string {
	return AppName + " " + Version
}

// UserAgent is the default User-Agent for outbound HTTP requests.
func UserAgent() string {
	return "Mozilla/5.0 (" + Tag() + ")"
}
