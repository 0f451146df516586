// Package subscr keeps per-topic lists of anonymous email subscribers and notifies them of new replies.
package subscr

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"text/template"

	"golang.org/x/text/language"

	"github.com/tinode/anonsub/server/logs"
	"github.com/tinode/anonsub/server/mailer"
	"github.com/tinode/anonsub/server/store"
	"github.com/tinode/anonsub/server/store/types"
	"github.com/tinode/anonsub/server/validate"
)

// Config is the configuration of the registry.
type Config struct {
	// Notifications are sent only when enabled.
	Enabled bool `json:"enabled"`
	// Name of the site used in the subject and the From header.
	SiteName string `json:"site_name"`
	// Address used as the nominal recipient and the sender of notifications.
	NoReply string `json:"no_reply"`
	// Send a separate message to every subscriber instead of one message with everyone in Bcc.
	Personalize bool `json:"personalize"`
	// Language of notifications, i.e. "en" or "de".
	DefaultLang string `json:"default_lang"`
	// Maximum length of the reply excerpt in notifications, in characters. Zero for the full text.
	MaxContentLength int `json:"max_content_length"`
	// Optional path template of the notification body, i.e. "./templ/email-notify-{{.Language}}.templ".
	MessageTemplFile string `json:"message_templ"`
}

// Forum provides read access to topics and replies of the host forum.
// Missing objects are reported as nil without an error.
type Forum interface {
	TopicGet(id int64) (*types.Topic, error)
	ReplyGet(id int64) (*types.Reply, error)
}

// StoreForum reads topics and replies mirrored into the store.
type StoreForum struct{}

// TopicGet returns the topic mirrored by the store.
func (StoreForum) TopicGet(id int64) (*types.Topic, error) {
	return store.Topics.Get(id)
}

// ReplyGet returns the reply mirrored by the store.
func (StoreForum) ReplyGet(id int64) (*types.Reply, error) {
	return store.Replies.Get(id)
}

// Stats receives counts of registry activity.
type Stats interface {
	Subscribed()
	Unsubscribed()
	Notified(recipients int)
	Skipped(reason string)
}

type noStats struct{}

func (noStats) Subscribed()    {}
func (noStats) Unsubscribed()  {}
func (noStats) Notified(int)   {}
func (noStats) Skipped(string) {}

// Reasons for skipping a notification.
const (
	SkipDisabled      = "disabled"
	SkipTopic         = "topic"
	SkipReply         = "reply"
	SkipSubject       = "subject"
	SkipMessage       = "message"
	SkipNoSubscribers = "no_subscribers"
)

// Outcome is the result of an unsubscribe request.
type Outcome int

const (
	// NotHandled means the request is not an unsubscribe request.
	NotHandled Outcome = iota
	// Unsubscribed means the email was removed from the list.
	Unsubscribed
	// NotSubscribed means the email was not on the list.
	NotSubscribed
	// Failed means the list could not be updated.
	Failed
)

// String returns the English text reported to the visitor.
func (o Outcome) String() string {
	switch o {
	case Unsubscribed:
		return MsgUnsubscribed
	case NotSubscribed:
		return MsgNotSubscribed
	case Failed:
		return MsgUnsubscribeError
	}
	return ""
}

// Registry manages anonymous subscriptions to forum topics.
type Registry struct {
	conf      Config
	lang      language.Tag
	subs      store.SubscribersObjMapperInterface
	forum     Forum
	sender    mailer.Sender
	validator validate.Validator
	hooks     *Hooks
	stats     Stats
	bodyTempl *template.Template
}

// Option customizes the registry.
type Option func(*Registry)

// WithHooks sets filters applied to notifications.
func WithHooks(h *Hooks) Option {
	return func(r *Registry) {
		if h != nil {
			r.hooks = h
		}
	}
}

// WithStats sets the receiver of activity counts. Nil keeps counts disabled.
func WithStats(s Stats) Option {
	return func(r *Registry) {
		if s != nil {
			r.stats = s
		}
	}
}

// WithValidator sets the email validator used by ResolveUnsubscribe.
func WithValidator(v validate.Validator) Option {
	return func(r *Registry) {
		r.validator = v
	}
}

// New creates a registry. Subscribers, forum and sender are required.
func New(conf Config, subs store.SubscribersObjMapperInterface, forum Forum, sender mailer.Sender, opts ...Option) (*Registry, error) {
	if subs == nil || forum == nil || sender == nil {
		return nil, errors.New("subscr: missing storage, forum or sender")
	}
	if conf.Enabled && conf.NoReply == "" {
		return nil, errors.New("subscr: no_reply address is required")
	}

	r := &Registry{
		conf:   conf,
		lang:   ParseLanguage(conf.DefaultLang),
		subs:   subs,
		forum:  forum,
		sender: sender,
		hooks:  &Hooks{},
		stats:  noStats{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if conf.MessageTemplFile != "" {
		pathTempl, err := template.New("path").Parse(conf.MessageTemplFile)
		if err != nil {
			return nil, fmt.Errorf("subscr: invalid message_templ: %w", err)
		}
		base, _ := r.lang.Base()
		templ, path, err := validate.ReadTemplateFile(pathTempl, base.String())
		if err != nil {
			return nil, fmt.Errorf("subscr: failed to read message template %s: %w", path, err)
		}
		r.bodyTempl = templ
	}

	return r, nil
}

// Hooks returns the filters applied to notifications.
func (r *Registry) Hooks() *Hooks {
	return r.hooks
}

// Language returns the default language of the registry.
func (r *Registry) Language() language.Tag {
	return r.lang
}

// Get returns the subscribers of the topic in the order of subscription.
func (r *Registry) Get(topicId int64) ([]string, error) {
	return r.subs.Get(topicId)
}

// Add subscribes the email to the topic. Adding an existing subscriber is a no-op.
// The topic is not checked for existence.
func (r *Registry) Add(topicId int64, email string) error {
	emails, err := r.subs.Get(topicId)
	if err != nil {
		return err
	}

	if isSubscribed(emails, email) {
		return nil
	}

	if err = r.subs.Save(topicId, append(emails, email)); err != nil {
		return err
	}
	r.stats.Subscribed()
	return nil
}

// Remove unsubscribes the email from the topic. When the last subscriber is removed,
// the list is deleted. Persistence failures are reported as Failed with an error wrapping types.ErrInternal.
func (r *Registry) Remove(topicId int64, email string) (Outcome, error) {
	emails, err := r.subs.Get(topicId)
	if err != nil {
		return Failed, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}

	idx := -1
	for i, e := range emails {
		if e == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NotSubscribed, nil
	}

	emails = append(emails[:idx], emails[idx+1:]...)
	if len(emails) > 0 {
		err = r.subs.Save(topicId, emails)
	} else {
		err = r.subs.Delete(topicId)
	}
	if err != nil {
		logs.Warn.Println("subscr: failed to remove subscriber", topicId, err)
		return Failed, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}

	r.stats.Unsubscribed()
	return Unsubscribed, nil
}

// isSubscribed checks if the email is in the list.
func isSubscribed(emails []string, email string) bool {
	for _, e := range emails {
		if e == email {
			return true
		}
	}
	return false
}

// formatSender formats the From header, i.e. `"My Forum" <noreply@example.com>`.
func formatSender(name, addr string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}
