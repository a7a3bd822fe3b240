// Package site serves the embedded browser meter.
package site

import (
	"context"
	"net/http"
)

// Register serves the embedded site at /. Unknown paths fall through to the
// file server and get a 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
