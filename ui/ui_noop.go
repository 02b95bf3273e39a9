//go:build !ui

package ui

import "io/fs"

// DistFS reports no frontend when built without the ui tag; the server
// then runs API-only and skips the SPA catch-all.
func DistFS() (fs.FS, error) {
	return nil, nil
}
