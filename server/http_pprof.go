// Debug tooling. Dumps named profile in response to HTTP request at
//
//	http(s)://<host-name>/<configured-path>/<profile-name>
//
// Request to the configured path itself lists available profiles.
// See godoc for the list of possible profile names: https://golang.org/pkg/runtime/pprof/#Profile

package main

import (
	"net/http"
	"path"
	"runtime/pprof"
	"strings"

	"github.com/tinode/anonsub/server/logs"
)

// Expose debug profiling at the given URL path.
func servePprof(mux *http.ServeMux, serveAt string) {
	if serveAt == "" || serveAt == "-" {
		return
	}

	root := path.Clean("/"+serveAt) + "/"
	mux.Handle(root, profileHandler(root))

	logs.Info.Printf("pprof: profiling info exposed at '%s'", root)
}

func profileHandler(root string) http.HandlerFunc {
	return func(wrt http.ResponseWriter, req *http.Request) {
		wrt.Header().Set("X-Content-Type-Options", "nosniff")

		profileName := strings.TrimPrefix(req.URL.Path, root)
		if profileName == "" {
			var names []string
			for _, p := range pprof.Profiles() {
				names = append(names, p.Name())
			}
			writeText(wrt, http.StatusOK, strings.Join(names, "\n")+"\n")
			return
		}

		profile := pprof.Lookup(profileName)
		if profile == nil {
			wrt.Header().Set("X-Go-Pprof", "1")
			writeText(wrt, http.StatusNotFound, "Unknown profile '"+profileName+"'\n")
			return
		}

		// Respond with the requested profile.
		wrt.Header().Set("Content-Type", "text/plain; charset=utf-8")
		profile.WriteTo(wrt, 2)
	}
}
