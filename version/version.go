package version

const Version = "0.1.0"

var (
	// VersionWithMeta is Version plus build metadata, set with -ldflags.
	VersionWithMeta = Version + "-dev"
	// Commit and Date describe the git commit of the build, set with -ldflags.
	Commit string
	Date   string
)
