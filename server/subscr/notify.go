package subscr

import (
	"net/mail"

	"github.com/tinode/anonsub/server/mailer"
	"github.com/tinode/anonsub/server/store/types"
	"github.com/tinode/anonsub/server/validate"
)

// Notify emails subscribers of the topic about the published reply. The author of the reply is skipped.
// Returns false if nothing was sent: notifications are disabled, the topic or the reply is not published,
// a filter cancelled the message or there is no one to notify.
func (r *Registry) Notify(topicId, replyId int64) (bool, error) {
	if !r.conf.Enabled {
		return r.skip(SkipDisabled)
	}

	topic, err := r.forum.TopicGet(topicId)
	if err != nil {
		return false, err
	}
	if topic == nil || !topic.State.IsPublished() {
		return r.skip(SkipTopic)
	}

	reply, err := r.forum.ReplyGet(replyId)
	if err != nil {
		return false, err
	}
	if reply == nil || !reply.State.IsPublished() {
		return r.skip(SkipReply)
	}

	subject := r.hooks.applySubject("["+r.conf.SiteName+"] "+stripTags(topic.Title), replyId, topicId)
	if subject == "" {
		return r.skip(SkipSubject)
	}

	emails, err := r.subs.Get(topicId)
	if err != nil {
		return false, err
	}

	content := excerpt(stripTags(reply.Content), r.conf.MaxContentLength)
	header := mail.Header{}
	bodies := make(map[string]string, len(emails))
	var body string
	for _, email := range emails {
		if email == reply.AuthorEmail {
			continue
		}

		body, err = r.formatBody(topic, reply, content, UnsubscribeLink(topic.Permalink, email))
		if err != nil {
			return false, err
		}
		body = r.hooks.applyMessage(body, replyId, topicId)
		if body == "" {
			return r.skip(SkipMessage)
		}

		header[mailer.HeaderBcc] = append(header[mailer.HeaderBcc], email)
		bodies[email] = body
	}

	if len(bodies) == 0 {
		return r.skip(SkipNoSubscribers)
	}

	header[mailer.HeaderFrom] = []string{formatSender(r.conf.SiteName, r.hooks.applyFrom(r.conf.NoReply))}
	header = r.hooks.applyHeaders(header)
	if header == nil {
		header = mail.Header{}
	}
	to := r.hooks.applyTo(r.conf.NoReply)

	if !r.conf.Personalize {
		// Everyone gets the body built for the last recipient.
		r.sender.Send(&mailer.Message{To: to, Subject: subject, Body: body, Header: header})
		r.stats.Notified(len(header[mailer.HeaderBcc]))
		return true, nil
	}

	rcpt := header[mailer.HeaderBcc]
	common := mail.Header{}
	for name, val := range header {
		if name != mailer.HeaderBcc {
			common[name] = val
		}
	}
	for _, addr := range rcpt {
		text, ok := bodies[addr]
		if !ok {
			text = body
		}
		r.sender.Send(&mailer.Message{To: addr, Subject: subject, Body: text, Header: cloneHeader(common)})
	}
	r.stats.Notified(len(rcpt))

	return true, nil
}

func (r *Registry) skip(reason string) (bool, error) {
	r.stats.Skipped(reason)
	return false, nil
}

func (r *Registry) formatBody(topic *types.Topic, reply *types.Reply, content, link string) (string, error) {
	if r.bodyTempl != nil {
		parts, err := validate.ExecuteTemplate(r.bodyTempl, nil, map[string]interface{}{
			"SiteName":        r.conf.SiteName,
			"TopicTitle":      stripTags(topic.Title),
			"TopicURL":        topic.Permalink,
			"AuthorName":      reply.AuthorName,
			"Content":         content,
			"ReplyURL":        reply.Url,
			"UnsubscribeLink": link,
		})
		if err != nil {
			return "", err
		}
		return parts[""], nil
	}

	return Translate(r.lang, msgBody, reply.AuthorName, content, reply.Url,
		`<a href="`+link+`" title="`+Translate(r.lang, msgUnsubscribeTitle)+`">`, "</a>"), nil
}

func cloneHeader(h mail.Header) mail.Header {
	out := make(mail.Header, len(h))
	for name, val := range h {
		out[name] = append([]string(nil), val...)
	}
	return out
}
