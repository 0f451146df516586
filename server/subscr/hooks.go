package subscr

import "net/mail"

// TextFilter rewrites the subject or the body of a notification about the reply in the topic.
// Returning an empty string cancels the notification.
type TextFilter func(text string, replyId, topicId int64) string

// AddressFilter rewrites an email address, i.e. the sender or the nominal recipient.
type AddressFilter func(addr string) string

// HeaderFilter rewrites the headers of the outgoing notification.
type HeaderFilter func(header mail.Header) mail.Header

// Hooks is the set of extension points applied to outgoing notifications.
// Filters of the same kind run synchronously in the order of registration.
// Hooks must be fully configured before the registry starts serving requests.
type Hooks struct {
	subject []TextFilter
	message []TextFilter
	from    []AddressFilter
	to      []AddressFilter
	headers []HeaderFilter
}

// FilterSubject registers a filter for notification subjects.
func (h *Hooks) FilterSubject(fn TextFilter) {
	h.subject = append(h.subject, fn)
}

// FilterMessage registers a filter for notification bodies.
func (h *Hooks) FilterMessage(fn TextFilter) {
	h.message = append(h.message, fn)
}

// FilterFrom registers a filter for the sender address.
func (h *Hooks) FilterFrom(fn AddressFilter) {
	h.from = append(h.from, fn)
}

// FilterTo registers a filter for the nominal recipient address.
func (h *Hooks) FilterTo(fn AddressFilter) {
	h.to = append(h.to, fn)
}

// FilterHeaders registers a filter for the message headers.
func (h *Hooks) FilterHeaders(fn HeaderFilter) {
	h.headers = append(h.headers, fn)
}

func applyText(filters []TextFilter, text string, replyId, topicId int64) string {
	for _, fn := range filters {
		text = fn(text, replyId, topicId)
	}
	return text
}

func applyAddress(filters []AddressFilter, addr string) string {
	for _, fn := range filters {
		addr = fn(addr)
	}
	return addr
}

func (h *Hooks) applySubject(subject string, replyId, topicId int64) string {
	if h == nil {
		return subject
	}
	return applyText(h.subject, subject, replyId, topicId)
}

func (h *Hooks) applyMessage(body string, replyId, topicId int64) string {
	if h == nil {
		return body
	}
	return applyText(h.message, body, replyId, topicId)
}

func (h *Hooks) applyFrom(addr string) string {
	if h == nil {
		return addr
	}
	return applyAddress(h.from, addr)
}

func (h *Hooks) applyTo(addr string) string {
	if h == nil {
		return addr
	}
	return applyAddress(h.to, addr)
}

func (h *Hooks) applyHeaders(header mail.Header) mail.Header {
	if h == nil {
		return header
	}
	for _, fn := range h.headers {
		header = fn(header)
	}
	return header
}
