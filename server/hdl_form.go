/******************************************************************************
 *
 *  Description :
 *
 *    HTML fragment with the "notify me" checkbox for the reply form.
 *
 *****************************************************************************/

package main

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/tinode/anonsub/server/logs"
	"github.com/tinode/anonsub/server/subscr"
)

func serveCheckbox(reg *subscr.Registry) http.HandlerFunc {
	return func(wrt http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			wrt.Header().Set("Allow", "GET, HEAD")
			writeError(wrt, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		query := req.URL.Query()
		tabIndex, _ := strconv.Atoi(query.Get("tabindex"))
		lang := subscr.MatchLanguage(req.Header.Get("Accept-Language"), reg.Language())

		var buf bytes.Buffer
		err := subscr.RenderCheckbox(&buf, lang, parseBool(query.Get("authenticated")),
			parseBool(query.Get("edit_other")), tabIndex)
		if err != nil {
			logs.Err.Println("form: failed to render checkbox", err)
			writeError(wrt, http.StatusInternalServerError, "internal error")
			return
		}

		wrt.Header().Set("Content-Type", "text/html; charset=utf-8")
		wrt.Header().Set("Content-Language", lang.String())
		wrt.WriteHeader(http.StatusOK)
		wrt.Write(buf.Bytes())
	}
}
