package version

// Overridden at build time:
// -ldflags "-X ely.by/yggrelay/internal/version.version=... -X ely.by/yggrelay/internal/version.commit=..."
var (
	version = "undefined"
	commit  = "undefined"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}
