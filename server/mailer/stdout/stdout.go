// Package stdout is a sample implementation of a mail transport.
// If enabled, it writes every message to stdout instead of sending it.
package stdout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tinode/anonsub/server/mailer"
)

var handler stdoutMail

type stdoutMail struct {
	initialized bool
	out         io.Writer
	mu          sync.Mutex
}

type configType struct {
	Enabled bool `json:"enabled"`
}

// Init initializes the handler
func (*stdoutMail) Init(jsonconf json.RawMessage) (bool, error) {

	// Check if the handler is already initialized
	if handler.initialized {
		return false, errors.New("already initialized")
	}

	var config configType
	if err := json.Unmarshal([]byte(jsonconf), &config); err != nil {
		return false, errors.New("failed to parse config: " + err.Error())
	}

	handler.initialized = true

	if !config.Enabled {
		return false, nil
	}

	handler.out = os.Stdout

	return true, nil
}

// IsReady checks if the handler is initialized.
func (*stdoutMail) IsReady() bool {
	return handler.out != nil
}

// Send writes the message to stdout.
func (*stdoutMail) Send(msg *mailer.Message) error {
	handler.mu.Lock()
	defer handler.mu.Unlock()

	return write(handler.out, msg)
}

// Stop terminates the handler.
func (*stdoutMail) Stop() {
	handler.out = nil
}

func write(out io.Writer, msg *mailer.Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)

	names := make([]string, 0, len(msg.Header))
	for name := range msg.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, val := range msg.Header[name] {
			fmt.Fprintf(&b, "%s: %s\n", name, val)
		}
	}
	b.WriteString("\n")
	b.WriteString(msg.Body)
	b.WriteString("\n.\n")

	_, err := io.WriteString(out, b.String())
	return err
}

func init() {
	mailer.Register("stdout", &handler)
}
