/******************************************************************************
 *
 *  Description :
 *
 *    Handler of reply events reported by the host forum.
 *
 *****************************************************************************/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tinode/anonsub/server/logs"
	"github.com/tinode/anonsub/server/store"
	"github.com/tinode/anonsub/server/store/types"
	"github.com/tinode/anonsub/server/subscr"
)

// Reply events.
const (
	// A reply was created.
	eventNew = "new"
	// A reply was edited.
	eventEdit = "edit"
	// A pending reply was approved by a moderator.
	eventPublish = "publish"
)

// Maximum size of an event request body.
const maxEventSize = 1 << 20

type replyEventRequest struct {
	Event     string       `json:"event"`
	Topic     *types.Topic `json:"topic"`
	Reply     *types.Reply `json:"reply"`
	Subscribe bool         `json:"subscribe"`
}

type replyEventResponse struct {
	// The reply was processed.
	Ok bool `json:"ok"`
	// The author was subscribed to the topic.
	Subscribed bool `json:"subscribed"`
	// Subscribers were notified.
	Notified bool `json:"notified"`
}

// serveReplyEvent mirrors the topic and the reply, then subscribes the author and notifies subscribers.
func serveReplyEvent(reg *subscr.Registry) http.HandlerFunc {
	return func(wrt http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			wrt.Header().Set("Allow", http.MethodPost)
			writeError(wrt, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var ev replyEventRequest
		dec := json.NewDecoder(http.MaxBytesReader(wrt, req.Body, maxEventSize))
		if err := dec.Decode(&ev); err != nil {
			writeError(wrt, http.StatusBadRequest, "malformed request")
			return
		}
		if ev.Reply == nil {
			writeError(wrt, http.StatusBadRequest, "missing reply")
			return
		}

		switch ev.Event {
		case eventNew, eventEdit, eventPublish:
		default:
			writeError(wrt, http.StatusBadRequest, "unknown event '"+ev.Event+"'")
			return
		}

		ev.Reply.AuthorEmail = strings.TrimSpace(ev.Reply.AuthorEmail)
		if ev.Topic != nil {
			if ev.Reply.Topic <= 0 {
				ev.Reply.Topic = ev.Topic.Id
			}
			if err := store.Topics.Upsert(ev.Topic); err != nil {
				writeStoreError(wrt, "topic", err)
				return
			}
		}
		if err := store.Replies.Upsert(ev.Reply); err != nil {
			writeStoreError(wrt, "reply", err)
			return
		}

		event := &subscr.ReplyEvent{Topic: ev.Topic, Reply: ev.Reply, Subscribe: ev.Subscribe}
		var resp replyEventResponse

		if ev.Event != eventPublish {
			err := reg.OnReplySaved(event)
			switch {
			case err == nil:
				resp.Subscribed = ev.Subscribe && ev.Reply.AuthorEmail != ""
			case errors.Is(err, subscr.ErrEmailRejected):
				// The reply is still announced.
				logs.Info.Println("events: email rejected", ev.Reply.AuthorEmail, err)
			default:
				writeStoreError(wrt, "subscription", err)
				return
			}
		}

		if ev.Event != eventEdit {
			notified, err := reg.OnReplyPublished(event)
			if err != nil {
				writeStoreError(wrt, "notification", err)
				return
			}
			resp.Notified = notified
		}

		resp.Ok = true
		writeJSON(wrt, http.StatusOK, &resp)
	}
}

func writeStoreError(wrt http.ResponseWriter, what string, err error) {
	if errors.Is(err, types.ErrMalformed) {
		writeError(wrt, http.StatusBadRequest, "malformed "+what)
		return
	}
	logs.Warn.Println("events: failed to process", what, err)
	writeError(wrt, http.StatusInternalServerError, "internal error")
}
