package mailer_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/tinode/anonsub/server/mailer"
	"github.com/tinode/anonsub/server/mailer/mock_mailer"
)

func TestInitPicksFirstEnabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	disabled := mock_mailer.NewMockTransport(ctrl)
	enabled := mock_mailer.NewMockTransport(ctrl)
	mailer.Register("test-disabled", disabled)
	mailer.Register("test-enabled", enabled)

	disabled.EXPECT().Init(gomock.Any()).Return(false, nil)
	enabled.EXPECT().Init(json.RawMessage(`{"enabled":true}`)).Return(true, nil)

	name, err := mailer.Init(json.RawMessage(`[
		{"name": "test-disabled", "config": {"enabled": false}},
		{"name": "test-enabled", "config": {"enabled":true}}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	if name != "test-enabled" {
		t.Fatalf("expected test-enabled transport, got '%s'", name)
	}

	done := make(chan struct{})
	enabled.EXPECT().IsReady().Return(true).AnyTimes()
	enabled.EXPECT().Send(gomock.Any()).DoAndReturn(func(msg *mailer.Message) error {
		close(done)
		return nil
	})
	enabled.EXPECT().Stop()

	mailer.Send(&mailer.Message{To: "a@x.com", Subject: "hi"})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}
	mailer.Stop()
}

func TestInitUnknownTransport(t *testing.T) {
	if _, err := mailer.Init(json.RawMessage(`[{"name": "no-such-transport"}]`)); err == nil {
		t.Error("expected error for an unknown transport")
	}
}
