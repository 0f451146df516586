/******************************************************************************
 *
 *  Description :
 *
 *    Handler of unsubscribe links found in notification emails.
 *
 *****************************************************************************/

package main

import (
	"net/http"

	"github.com/tinode/anonsub/server/logs"
	"github.com/tinode/anonsub/server/subscr"
)

func serveUnsubscribe(reg *subscr.Registry) http.HandlerFunc {
	return func(wrt http.ResponseWriter, req *http.Request) {
		// GET only: the request changes the subscription list.
		if req.Method != http.MethodGet {
			wrt.Header().Set("Allow", http.MethodGet)
			writeError(wrt, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		outcome, err := reg.ResolveUnsubscribe(req.URL.Query())
		if outcome == subscr.NotHandled {
			writeError(wrt, http.StatusNotFound, "not found")
			return
		}

		status := http.StatusOK
		var key string
		switch outcome {
		case subscr.Unsubscribed:
			key = subscr.MsgUnsubscribed
		case subscr.NotSubscribed:
			key = subscr.MsgNotSubscribed
		default:
			logs.Warn.Println("unsubscribe: failed", err)
			status = http.StatusInternalServerError
			key = subscr.MsgUnsubscribeError
		}

		lang := subscr.MatchLanguage(req.Header.Get("Accept-Language"), reg.Language())
		writeText(wrt, status, subscr.Translate(lang, key))
	}
}
