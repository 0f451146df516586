// Package mailer contains interfaces to be implemented by outbound email transports
// and a registry of such transports.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tinode/anonsub/server/concurrency"
	"github.com/tinode/anonsub/server/logs"
)

// Standard header names.
const (
	HeaderFrom        = "From"
	HeaderBcc         = "Bcc"
	HeaderCc          = "Cc"
	HeaderReplyTo     = "Reply-To"
	HeaderContentType = "Content-Type"
)

// Default number of goroutines delivering messages.
const defaultWorkers = 4

// Number of messages waiting for a free delivery goroutine. Messages above it are dropped.
const defaultQueueLen = 1024

// Number of delivery attempts after the first failure.
const maxRetries = 3

// newBackOff returns the delay policy between delivery attempts.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.WithMaxRetries(b, maxRetries)
}

// Message is a single outbound email.
type Message struct {
	// Nominal recipient.
	To string
	// Subject line, not encoded.
	Subject string
	// Message body.
	Body string
	// Extra headers: From, Bcc, Content-Type etc.
	Header mail.Header
}

// From returns the address from the From header, or an empty string.
func (m *Message) From() string {
	if addr, err := m.Header.AddressList(HeaderFrom); err == nil && len(addr) > 0 {
		return addr[0].Address
	}
	return ""
}

// Recipients returns all envelope recipients: To, Cc and Bcc, without duplicates.
func (m *Message) Recipients() []string {
	var rcpt []string
	seen := map[string]bool{}
	add := func(addr string) {
		if addr != "" && !seen[addr] {
			seen[addr] = true
			rcpt = append(rcpt, addr)
		}
	}

	if to, err := mail.ParseAddress(m.To); err == nil {
		add(to.Address)
	} else {
		add(strings.TrimSpace(m.To))
	}

	for _, name := range []string{HeaderCc, HeaderBcc} {
		for _, val := range m.Header[name] {
			if list, err := mail.ParseAddressList(val); err == nil {
				for _, addr := range list {
					add(addr.Address)
				}
			} else {
				add(strings.TrimSpace(val))
			}
		}
	}
	return rcpt
}

// ContentType returns the content type of the body, text/plain by default.
func (m *Message) ContentType() string {
	if ct := m.Header.Get(HeaderContentType); ct != "" {
		return ct
	}
	return "text/plain; charset=\"UTF-8\""
}

// Compose formats the message as RFC 5322 text ready for submission. Bcc headers are omitted.
func Compose(msg *Message, now time.Time) []byte {
	var buf bytes.Buffer

	writeHeader := func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	if from := msg.Header.Get(HeaderFrom); from != "" {
		writeHeader(HeaderFrom, from)
	}
	writeHeader("To", msg.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", now.Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader(HeaderContentType, msg.ContentType())
	writeHeader("Content-Transfer-Encoding", "quoted-printable")

	names := make([]string, 0, len(msg.Header))
	for name := range msg.Header {
		switch name {
		case HeaderFrom, HeaderBcc, HeaderContentType, "To", "Subject", "Date", "Mime-Version", "Content-Transfer-Encoding":
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, val := range msg.Header[name] {
			writeHeader(name, val)
		}
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	qp.Write([]byte(msg.Body))
	qp.Close()

	return buf.Bytes()
}

// Transport is an interface which must be implemented by email transports.
type Transport interface {
	// Init initializes the transport. Returns false if the transport is disabled.
	Init(jsonconf json.RawMessage) (bool, error)

	// IsReady сhecks if the transport is initialized.
	IsReady() bool

	// Send delivers the message synchronously.
	Send(msg *Message) error

	// Stop releases resources held by the transport.
	Stop()
}

// Sender accepts messages for delivery.
type Sender interface {
	// Send queues the message and returns without waiting for delivery.
	Send(msg *Message)
}

// Queue is a Sender which delivers messages through the active transport.
type Queue struct{}

// Send queues the message for delivery by the active transport.
func (Queue) Send(msg *Message) {
	Send(msg)
}

type configType struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

var transports map[string]Transport

var active struct {
	sync.Mutex
	transport Transport
	pool      *concurrency.GoRoutinePool
	// Cancels pending retries on Stop.
	ctx    context.Context
	cancel context.CancelFunc
}

// Register a transport.
func Register(name string, tr Transport) {
	if transports == nil {
		transports = make(map[string]Transport)
	}

	if tr == nil {
		panic("Register: mail transport is nil")
	}
	if _, dup := transports[name]; dup {
		panic("Register: called twice for transport " + name)
	}
	transports[name] = tr
}

// Init initializes registered transports. The first enabled transport is used for sending.
func Init(jsconfig json.RawMessage) (string, error) {
	var config []configType

	if err := json.Unmarshal(jsconfig, &config); err != nil {
		return "", errors.New("failed to parse config: " + err.Error())
	}

	for _, cc := range config {
		tr := transports[cc.Name]
		if tr == nil {
			return "", errors.New("unknown mail transport '" + cc.Name + "'")
		}
		ok, err := tr.Init(cc.Config)
		if err != nil {
			return "", err
		}
		if ok {
			Use(tr)
			return cc.Name, nil
		}
	}

	return "", nil
}

// Use makes the transport active. Passing nil disables sending.
func Use(tr Transport) {
	active.Lock()
	defer active.Unlock()

	active.transport = tr
	if tr != nil && active.pool == nil {
		active.pool = concurrency.NewQueuedGoRoutinePool(defaultWorkers, defaultQueueLen)
		active.ctx, active.cancel = context.WithCancel(context.Background())
	}
}

// Send queues the message for delivery and returns immediately. Failed deliveries are retried
// with exponential backoff, final errors are logged. When the queue is full the message is dropped.
func Send(msg *Message) {
	active.Lock()
	defer active.Unlock()

	tr, pool, ctx := active.transport, active.pool, active.ctx
	if tr == nil || !tr.IsReady() {
		logs.Warn.Println("mailer: no active transport, message dropped:", msg.Subject)
		return
	}

	assignMessageId(msg)

	ok := pool.TrySchedule(func() {
		if ctx.Err() != nil {
			logs.Warn.Println("mailer: stopped, message dropped:", msg.Subject)
			return
		}
		err := backoff.RetryNotify(func() error { return tr.Send(msg) },
			backoff.WithContext(newBackOff(), ctx),
			func(err error, wait time.Duration) {
				logs.Warn.Println("mailer: delivery failed, retrying in", wait, err)
			})
		if err != nil {
			logs.Err.Println("mailer: failed to send", msg.Subject, err)
		}
	})
	if !ok {
		logs.Err.Println("mailer: delivery queue is full, message dropped:", msg.Subject)
	}
}

// Stop stops the delivery goroutines and the active transport.
func Stop() {
	active.Lock()
	defer active.Unlock()

	if active.pool != nil {
		active.cancel()
		active.pool.Stop()
		active.pool = nil
		active.ctx, active.cancel = nil, nil
	}
	if active.transport != nil && active.transport.IsReady() {
		active.transport.Stop()
	}
	active.transport = nil
}
