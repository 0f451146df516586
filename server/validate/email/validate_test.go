package email

import (
	"testing"

	t "github.com/tinode/anonsub/server/store/types"
)

func TestPreCheck(tt *testing.T) {
	v := &validator{}
	if err := v.Init(`{}`); err != nil {
		tt.Fatal(err)
	}

	cases := []struct {
		in       string
		expected string
		err      error
	}{
		{in: "alice@example.com", expected: "alice@example.com"},
		{in: "  Alice@Example.com\t", expected: "Alice@Example.com"},
		{in: "bob+tag@mail.example.org", expected: "bob+tag@mail.example.org"},
		{in: "", err: t.ErrMalformed},
		{in: "alice", err: t.ErrMalformed},
		{in: "alice@", err: t.ErrMalformed},
		{in: "@example.com", err: t.ErrMalformed},
		{in: "alice@localhost", err: t.ErrMalformed},
		{in: "Alice <alice@example.com>", err: t.ErrMalformed},
		{in: "alice@example.com, bob@example.com", err: t.ErrMalformed},
	}

	for _, tc := range cases {
		got, err := v.PreCheck(tc.in)
		if err != tc.err {
			tt.Errorf("PreCheck(%q): expected error %v, got %v", tc.in, tc.err, err)
			continue
		}
		if got != tc.expected {
			tt.Errorf("PreCheck(%q): expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestPreCheckTooLong(tt *testing.T) {
	v := &validator{}
	if err := v.Init(`{"max_length": 16}`); err != nil {
		tt.Fatal(err)
	}
	if _, err := v.PreCheck("a.very.long.name@example.com"); err != t.ErrMalformed {
		tt.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestPreCheckDomains(tt *testing.T) {
	v := &validator{}
	if err := v.Init(`{"domains": ["Example.com", " example.org"]}`); err != nil {
		tt.Fatal(err)
	}
	if !v.IsInitialized() {
		tt.Fatal("validator must be initialized")
	}

	if _, err := v.PreCheck("alice@EXAMPLE.com"); err != nil {
		tt.Errorf("whitelisted domain rejected: %v", err)
	}
	if _, err := v.PreCheck("bob@example.org"); err != nil {
		tt.Errorf("whitelisted domain rejected: %v", err)
	}
	if _, err := v.PreCheck("carol@example.net"); err != t.ErrPolicy {
		tt.Errorf("expected ErrPolicy, got %v", err)
	}
}
