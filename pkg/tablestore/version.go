// Package tablestore holds module-wide metadata.
package tablestore

// Version is the release version of the tablestore module and CLI.
const Version = "0.3.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/tablestore"

// Commit is the source revision, set at link time by the build target.
var Commit = ""
