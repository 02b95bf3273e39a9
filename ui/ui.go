//go:build ui

package ui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the compiled frontend, rooted at dist/. Only available
// when the binary was built with the ui tag after a frontend build.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
