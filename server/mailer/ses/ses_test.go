package ses

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/google/go-cmp/cmp"
	"github.com/tinode/anonsub/server/mailer"
)

type fakeSES struct {
	sesiface.SESAPI
	inputs []*ses.SendRawEmailInput
}

func (f *fakeSES) SendRawEmail(in *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	return &ses.SendRawEmailOutput{MessageId: aws.String("test-id")}, nil
}

func TestSendRaw(t *testing.T) {
	fake := &fakeSES{}
	h := &handler{
		svc:    fake,
		conf:   configType{Sender: "Forum <noreply@example.com>", ConfigurationSet: "forum"},
		source: "noreply@example.com",
	}

	msg := &mailer.Message{
		To:      "noreply@example.com",
		Subject: "[Forum] Topic",
		Body:    "hello",
		Header: mail.Header{
			"Bcc": []string{"a@x.com", "b@x.com"},
		},
	}
	if err := h.send(msg); err != nil {
		t.Fatal(err)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected 1 SES call, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if diff := cmp.Diff([]string{"noreply@example.com", "a@x.com", "b@x.com"}, aws.StringValueSlice(in.Destinations)); diff != "" {
		t.Errorf("destinations mismatch (-want +got):\n%s", diff)
	}
	if aws.StringValue(in.Source) != "noreply@example.com" {
		t.Errorf("unexpected source %q", aws.StringValue(in.Source))
	}
	if aws.StringValue(in.ConfigurationSetName) != "forum" {
		t.Errorf("unexpected configuration set %q", aws.StringValue(in.ConfigurationSetName))
	}
	raw := string(in.RawMessage.Data)
	if strings.Contains(raw, "Bcc:") {
		t.Error("Bcc header must not be included in the raw message")
	}
	if !strings.Contains(raw, "From: Forum <noreply@example.com>\r\n") {
		t.Errorf("missing default From header in:\n%s", raw)
	}
}

func TestSendNoRecipients(t *testing.T) {
	h := &handler{svc: &fakeSES{}}
	if err := h.send(&mailer.Message{}); err == nil {
		t.Error("expected error for a message without recipients")
	}
}
