// Package ses is a mail transport which sends messages through Amazon Simple Email Service.
package ses

import (
	"encoding/json"
	"errors"
	"net/mail"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/tinode/anonsub/server/mailer"
)

const transportName = "ses"

type configType struct {
	Enabled         bool   `json:"enabled"`
	AccessKeyId     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
	// Custom endpoint, i.e. for testing with a local SES emulator.
	Endpoint string `json:"endpoint"`
	// Sender address, i.e. "Forum <noreply@example.com>". Must be verified with SES.
	Sender string `json:"sender"`
	// Optional SES configuration set to apply.
	ConfigurationSet string `json:"configuration_set"`
}

type handler struct {
	svc    sesiface.SESAPI
	conf   configType
	source string
}

var sesHandler handler

// Init initializes the transport.
func (*handler) Init(jsonconf json.RawMessage) (bool, error) {
	if sesHandler.svc != nil {
		return false, errors.New("already initialized")
	}

	var config configType
	if err := json.Unmarshal(jsonconf, &config); err != nil {
		return false, errors.New("failed to parse config: " + err.Error())
	}
	if !config.Enabled {
		return false, nil
	}

	if config.Region == "" || config.Sender == "" {
		return false, errors.New("ses: missing region or sender")
	}

	sender, err := mail.ParseAddress(config.Sender)
	if err != nil {
		return false, err
	}

	awsConf := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKeyId != "" {
		awsConf.Credentials = credentials.NewStaticCredentials(config.AccessKeyId, config.SecretAccessKey, "")
	}
	if config.Endpoint != "" {
		awsConf.Endpoint = aws.String(config.Endpoint)
	}
	sess, err := session.NewSession(awsConf)
	if err != nil {
		return false, err
	}

	sesHandler.conf = config
	sesHandler.source = sender.Address
	sesHandler.svc = ses.New(sess)

	return true, nil
}

// IsReady checks if the transport is initialized.
func (*handler) IsReady() bool {
	return sesHandler.svc != nil
}

// Send submits the message as raw MIME. SES delivers to every envelope destination, To and Bcc.
func (*handler) Send(msg *mailer.Message) error {
	return sesHandler.send(msg)
}

// Stop drops the SES client.
func (*handler) Stop() {
	sesHandler.svc = nil
}

func (h *handler) send(msg *mailer.Message) error {
	rcpt := msg.Recipients()
	if len(rcpt) == 0 {
		return errors.New("no recipients")
	}

	if msg.Header.Get(mailer.HeaderFrom) == "" {
		if msg.Header == nil {
			msg.Header = mail.Header{}
		}
		msg.Header[mailer.HeaderFrom] = []string{h.conf.Sender}
	}

	input := &ses.SendRawEmailInput{
		Destinations: aws.StringSlice(rcpt),
		Source:       aws.String(h.source),
		RawMessage:   &ses.RawMessage{Data: mailer.Compose(msg, time.Now())},
	}
	if h.conf.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(h.conf.ConfigurationSet)
	}

	_, err := h.svc.SendRawEmail(input)
	return err
}

func init() {
	mailer.Register(transportName, &sesHandler)
}
