package mailer

import (
	"net/mail"
	"strings"
	"testing"
	"time"
)

var testMsgIdKey = []byte("0123456789abcdef")

func TestMsgIdGenerator(t *testing.T) {
	var gen MsgIdGenerator
	if err := gen.Init(1, testMsgIdKey, ""); err == nil {
		t.Error("expected error for empty domain")
	}
	if err := gen.Init(1, []byte("short"), "example.com"); err == nil {
		t.Error("expected error for invalid key")
	}

	gen = MsgIdGenerator{}
	if err := gen.Init(1, testMsgIdKey, "example.com"); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := gen.Get()
		if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@example.com>") {
			t.Fatalf("malformed id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestAssignMessageId(t *testing.T) {
	t.Cleanup(func() { msgIds.gen = nil })

	msg := &Message{To: "a@x.com"}
	assignMessageId(msg)
	if msg.Header != nil {
		t.Error("no header expected when ids are disabled")
	}

	if err := InitMessageIds(1, testMsgIdKey, "example.com"); err != nil {
		t.Fatal(err)
	}
	assignMessageId(msg)
	id := msg.Header.Get(HeaderMessageId)
	if id == "" {
		t.Fatal("Message-ID not assigned")
	}

	// Existing ID is kept.
	assignMessageId(msg)
	if got := msg.Header.Get(HeaderMessageId); got != id {
		t.Errorf("Message-ID replaced: %q -> %q", id, got)
	}

	raw := string(Compose(msg, time.Now()))
	if !strings.Contains(raw, "Message-Id: "+id+"\r\n") {
		t.Errorf("Message-ID missing in composed message:\n%s", raw)
	}
	parsed, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Header.Get("Message-ID") != id {
		t.Errorf("unexpected parsed Message-ID %q", parsed.Header.Get("Message-ID"))
	}
}
