// Package static holds the single-page frontend compiled into the binary.
package static

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

//go:embed all:dist/*
var distFS embed.FS

// IndexFile is served for "/" and for any path that is not an asset.
const IndexFile = "index.html"

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// ContentType maps an asset name to its Content-Type header.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Asset returns the content of a file under dist. The name is a URL path;
// "" and "/" resolve to the index page.
func Asset(name string) ([]byte, error) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		name = IndexFile
	}
	return fs.ReadFile(distFS, path.Join("dist", name))
}

// HasDist returns true if the dist directory exists and has content.
func HasDist() bool {
	entries, err := fs.ReadDir(distFS, "dist")
	return err == nil && len(entries) > 0
}
