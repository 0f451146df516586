// Package adapter contains the interfaces to be implemented by the database adapter
package adapter

import (
	"encoding/json"

	t "github.com/tinode/anonsub/server/store/types"
)

// Adapter is the interface that must be implemented by a database
// adapter. The current schema supports a single connection by database type.
type Adapter interface {
	// General

	// Open and configure the adapter
	Open(config json.RawMessage) error
	// Close the adapter
	Close() error
	// IsOpen checks if the adapter is ready for use
	IsOpen() bool
	// GetDbVersion returns current database version.
	GetDbVersion() (int, error)
	// CheckDbVersion checks if the actual database version matches adapter version.
	CheckDbVersion() error
	// GetName returns the name of the adapter
	GetName() string
	// Version returns adapter version
	Version() int
	// CreateDb creates the database optionally dropping an existing database first.
	CreateDb(reset bool) error

	// Topics mirrored from the host forum

	// TopicUpsert creates or replaces a topic.
	TopicUpsert(topic *t.Topic) error
	// TopicGet loads a single topic by id, if it exists. If the topic does not exist the call returns (nil, nil)
	TopicGet(id int64) (*t.Topic, error)

	// Replies mirrored from the host forum

	// ReplyUpsert creates or replaces a reply.
	ReplyUpsert(reply *t.Reply) error
	// ReplyGet loads a single reply by id. If the reply does not exist the call returns (nil, nil)
	ReplyGet(id int64) (*t.Reply, error)

	// Per-topic metadata

	// TopicMetaGet reads a metadata value attached to the topic. Returns (nil, nil) if the record is missing.
	TopicMetaGet(topic int64, key string) (json.RawMessage, error)
	// TopicMetaUpsert creates or replaces a metadata value attached to the topic.
	TopicMetaUpsert(topic int64, key string, value json.RawMessage) error
	// TopicMetaDelete deletes the metadata record. Returns t.ErrNotFound if the record is missing.
	TopicMetaDelete(topic int64, key string) error
}
