// Package web embeds the admin panel: html/template sources under templates/
// and the browser assets (css, js, icons, PWA manifest, service worker) under
// static/.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*/*.html static
var content embed.FS

func sub(dir string) fs.FS {
	f, err := fs.Sub(content, dir)
	if err != nil {
		// dir is a literal embedded above
		panic(err)
	}
	return f
}

// Templates is rooted at templates/, so paths read layouts/base.html
func Templates() fs.FS { return sub("templates") }

// Static is rooted at static/
func Static() fs.FS { return sub("static") }

// Asset reads one file from static/
func Asset(name string) ([]byte, error) {
	return fs.ReadFile(content, "static/"+name)
}
