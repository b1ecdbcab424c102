// Package version carries build metadata injected with
// -ldflags "-X field-geo/internal/version.Commit=<sha>".
package version

var Commit = "dev"
