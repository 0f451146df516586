// Package smtp is a mail transport which uses an external SMTP server.
package smtp

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/tinode/anonsub/server/logs"
	"github.com/tinode/anonsub/server/mailer"
)

// Transport configuration.
type transport struct {
	// Sender email used in the envelope, i.e. "noreply@example.com" or "Forum <noreply@example.com>".
	SendFrom string `json:"sender"`
	// Login to use for SMTP authentication.
	Login string `json:"login"`
	// Password to use for SMTP authentication.
	SenderPassword string `json:"sender_password"`
	// Authentication mechanism, "plain", "login" or "none".
	AuthMechanism string `json:"auth_mechanism"`
	// Address of the SMTP server.
	SMTPAddr string `json:"smtp_server"`
	// Port of the SMTP server.
	SMTPPort string `json:"smtp_port"`
	// FQDN to use in EHLO/HELO exchange.
	SMTPHeloHost string `json:"smtp_helo_host"`
	// Skip verification of the server's certificate chain and host name.
	// In this mode, TLS is susceptible to machine-in-the-middle attacks.
	TLSInsecureSkipVerify bool `json:"insecure_skip_verify"`

	auth        smtp.Auth
	senderEmail string
	ready       bool
}

const (
	transportName = "smtp"

	defaultPort = "25"
)

var handler transport

// loginAuth implements the LOGIN authentication mechanism.
type loginAuth struct {
	username, password []byte
}

// Start begins an authentication with a server. Exported only to satisfy the interface definition.
func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

// Next continues the authentication. Exported only to satisfy the interface definition.
func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		switch strings.ToLower(string(fromServer)) {
		case "username:":
			return a.username, nil
		case "password:":
			return a.password, nil
		default:
			return nil, errors.New("LOGIN AUTH unknown server response '" + string(fromServer) + "'")
		}
	}
	return nil, nil
}

// Init: initialize the transport.
func (*transport) Init(jsonconf json.RawMessage) (bool, error) {
	if handler.ready {
		return false, errors.New("already initialized")
	}

	var config struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(jsonconf, &config); err != nil {
		return false, errors.New("failed to parse config: " + err.Error())
	}
	if !config.Enabled {
		return false, nil
	}

	if err := json.Unmarshal(jsonconf, &handler); err != nil {
		return false, errors.New("failed to parse config: " + err.Error())
	}

	if handler.SMTPAddr == "" {
		return false, errors.New("smtp_server is required")
	}

	// SendFrom could be an RFC 5322 address of the form "John Doe <jdoe@example.com>". Parse it.
	sender, err := mail.ParseAddress(handler.SendFrom)
	if err != nil {
		return false, err
	}
	handler.senderEmail = sender.Address

	// Check if login is provided explicitly. Otherwise use the sender email as login.
	login := handler.Login
	if login == "" {
		login = handler.senderEmail
	}

	switch strings.ToLower(handler.AuthMechanism) {
	case "login":
		handler.auth = &loginAuth{[]byte(login), []byte(handler.SenderPassword)}
	case "", "plain":
		handler.auth = smtp.PlainAuth("", login, handler.SenderPassword, handler.SMTPAddr)
	case "none":
		handler.auth = nil
	default:
		return false, errors.New("unknown auth_mechanism " + handler.AuthMechanism)
	}

	if handler.SMTPPort == "" {
		handler.SMTPPort = defaultPort
	}

	handler.ready = true

	return true, nil
}

// IsReady checks if the transport is initialized.
func (*transport) IsReady() bool {
	return handler.ready
}

// Send delivers the message to all recipients, To and Bcc, in one SMTP transaction.
func (*transport) Send(msg *mailer.Message) error {
	rcpt := msg.Recipients()
	if len(rcpt) == 0 {
		return errors.New("no recipients")
	}

	if msg.Header.Get(mailer.HeaderFrom) == "" {
		if msg.Header == nil {
			msg.Header = mail.Header{}
		}
		msg.Header[mailer.HeaderFrom] = []string{handler.SendFrom}
	}

	err := handler.sendMail(rcpt, mailer.Compose(msg, time.Now()))
	if err != nil {
		logs.Warn.Println("SMTP error", rcpt, err)
	}
	return err
}

// Stop is a no-op: connections are not kept between messages.
func (*transport) Stop() {
	handler.ready = false
}

// This is a basic SMTP sender which connects to a server using login/password.
// It mirrors smtp.SendMail but allows customizing the HELO host and TLS verification.
func (t *transport) sendMail(rcpt []string, msg []byte) error {
	client, err := smtp.Dial(net.JoinHostPort(t.SMTPAddr, t.SMTPPort))
	if err != nil {
		return err
	}
	defer client.Close()

	if t.SMTPHeloHost != "" {
		if err = client.Hello(t.SMTPHeloHost); err != nil {
			return err
		}
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		config := &tls.Config{
			InsecureSkipVerify: t.TLSInsecureSkipVerify,
			ServerName:         t.SMTPAddr,
		}
		if err = client.StartTLS(config); err != nil {
			return err
		}
	}
	if t.auth != nil {
		if isSupported, _ := client.Extension("AUTH"); isSupported {
			if err = client.Auth(t.auth); err != nil {
				return err
			}
		}
	}
	if err = client.Mail(t.senderEmail); err != nil {
		return err
	}
	for _, addr := range rcpt {
		if err = client.Rcpt(strings.ReplaceAll(strings.ReplaceAll(addr, "\r", " "), "\n", " ")); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func init() {
	mailer.Register(transportName, &handler)
}
