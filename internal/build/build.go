// Package build provides build information that is linked into the application. Other
// packages within this project can use this information in logs etc..
package build

var (
	// Version is the build version of the binary (e.g. v0.1.0 or a pseudo version).
	Version = "dev"

	// Commit is the git commit SHA1 hash of the build.
	Commit = "none"

	// Date is the date when the binary was built.
	Date = "unknown"

	// ProjectName is the name of the project, used as the metrics namespace.
	ProjectName = "tavsiyece"
)
