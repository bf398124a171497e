package buildinfo

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/bingwamta/databot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/bingwamta/databot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/bingwamta/databot/core/buildinfo.Date=2025-08-30T12:00:00Z'
var (
	// Version reports the release tag of the bot.
	Version = "1.0.0"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders a single-line build summary for CLI output.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
