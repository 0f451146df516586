package mailer

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"sync"

	sf "github.com/tinode/snowflake"
	"golang.org/x/crypto/xtea"
)

// HeaderMessageId is the name of the Message-ID header as canonicalized by net/textproto.
const HeaderMessageId = "Message-Id"

// MsgIdGenerator produces unique random-looking Message-ID values: snowflake IDs weakly
// encrypted with XTEA so the sequence and the sending rate are not exposed.
type MsgIdGenerator struct {
	seq    *sf.SnowFlake
	cipher *xtea.Cipher
	domain string
}

// Init initializes the generator. Domain is the right-hand side of the ID, i.e. "example.com".
func (g *MsgIdGenerator) Init(workerID uint, key []byte, domain string) error {
	if domain == "" {
		return errors.New("mailer: message id domain is empty")
	}

	var err error
	if g.seq == nil {
		if g.seq, err = sf.NewSnowFlake(uint32(workerID)); err != nil {
			return err
		}
	}
	if g.cipher == nil {
		if g.cipher, err = xtea.NewCipher(key); err != nil {
			return err
		}
	}
	g.domain = domain

	return nil
}

// Get returns a new ID in angle brackets, like "<dGVzdGluZw@example.com>", or an empty string on failure.
func (g *MsgIdGenerator) Get() string {
	id, err := g.seq.Next()
	if err != nil {
		return ""
	}

	src := make([]byte, 8)
	dst := make([]byte, 8)
	binary.LittleEndian.PutUint64(src, id)
	g.cipher.Encrypt(dst, src)

	return "<" + base64.RawURLEncoding.EncodeToString(dst) + "@" + g.domain + ">"
}

var msgIds struct {
	sync.Mutex
	gen *MsgIdGenerator
}

// InitMessageIds enables adding Message-ID headers to outgoing messages which don't have one.
func InitMessageIds(workerID uint, key []byte, domain string) error {
	gen := &MsgIdGenerator{}
	if err := gen.Init(workerID, key, domain); err != nil {
		return err
	}

	msgIds.Lock()
	msgIds.gen = gen
	msgIds.Unlock()
	return nil
}

// assignMessageId sets the Message-ID header if the generator is initialized and the header is missing.
func assignMessageId(msg *Message) {
	msgIds.Lock()
	gen := msgIds.gen
	msgIds.Unlock()

	if gen == nil || msg.Header.Get(HeaderMessageId) != "" {
		return
	}
	if id := gen.Get(); id != "" {
		if msg.Header == nil {
			msg.Header = map[string][]string{}
		}
		msg.Header[HeaderMessageId] = []string{id}
	}
}
