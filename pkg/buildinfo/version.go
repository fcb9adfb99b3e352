// Package buildinfo carries build-time version metadata.
//
// The variables are overridden at link time:
//
//	go build -ldflags "-X github.com/pipsight/pipsight/pkg/buildinfo.Version=v1.2.3"
package buildinfo

var (
	// Version is the semantic version of the build ("dev" for local builds).
	Version = "dev"
	// Commit is the short git commit hash the build was produced from.
	Commit = "none"
	// Date is the build timestamp in RFC 3339 form.
	Date = "unknown"
)

// UserAgent returns the HTTP User-Agent string for outbound requests.
func UserAgent() string {
	return "pipsight/" + Version
}
