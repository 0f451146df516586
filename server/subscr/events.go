package subscr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinode/anonsub/server/store/types"
)

// ErrEmailRejected is returned when the author's email did not pass validation.
var ErrEmailRejected = errors.New("email rejected")

// ReplyEvent is a reply submitted or published in the host forum.
type ReplyEvent struct {
	Topic *types.Topic
	Reply *types.Reply
	// The author asked to be notified of follow-up replies.
	Subscribe bool
}

// topicId returns the ID of the topic the reply belongs to.
func (ev *ReplyEvent) topicId() int64 {
	if ev.Reply != nil && ev.Reply.Topic > 0 {
		return ev.Reply.Topic
	}
	if ev.Topic != nil {
		return ev.Topic.Id
	}
	return 0
}

// OnReplySaved subscribes the author of a created or edited reply if they asked for it.
// Emails rejected by the validator are not subscribed: the error wraps ErrEmailRejected
// and the validator's error.
func (r *Registry) OnReplySaved(ev *ReplyEvent) error {
	if !ev.Subscribe || ev.Reply == nil {
		return nil
	}

	if strings.TrimSpace(ev.Reply.AuthorEmail) == "" {
		return nil
	}
	topicId := ev.topicId()
	if topicId <= 0 {
		return types.ErrMalformed
	}
	email, err := r.checkEmail(ev.Reply.AuthorEmail)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmailRejected, err)
	}
	return r.Add(topicId, email)
}

// OnReplyPublished notifies subscribers of the topic about the new reply.
func (r *Registry) OnReplyPublished(ev *ReplyEvent) (bool, error) {
	if ev.Reply == nil {
		return false, types.ErrMalformed
	}
	return r.Notify(ev.topicId(), ev.Reply.Id)
}
