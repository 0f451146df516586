// Package leveldb is an embedded database adapter which keeps data in LevelDB files.
// Used when no other adapter is compiled in.
package leveldb

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	ds "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	levelds "github.com/ipfs/go-ds-leveldb"
	"github.com/tinode/anonsub/server/db/common"
	"github.com/tinode/anonsub/server/store"
	t "github.com/tinode/anonsub/server/store/types"
)

// adapter holds LevelDB datastore.
type adapter struct {
	db      *levelds.Datastore
	path    string
	version int

	// Single request timeout.
	timeout time.Duration
}

const (
	adpVersion  = 100
	adapterName = "leveldb"
)

var versionKey = ds.NewKey("/kvmeta/version")

type configType struct {
	// Directory with the database files. In-memory database if empty.
	Path string `json:"path,omitempty"`
	// Request timeout (in seconds).
	// If 0 (or negative), no timeout is applied.
	Timeout int `json:"timeout,omitempty"`
}

func (a *adapter) getContext() (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(context.Background(), a.timeout)
	}
	return context.Background(), nil
}

func topicKey(id int64) ds.Key {
	return ds.NewKey("/topics/" + strconv.FormatInt(id, 10))
}

func replyKey(id int64) ds.Key {
	return ds.NewKey("/replies/" + strconv.FormatInt(id, 10))
}

func metaKey(topic int64, key string) ds.Key {
	return ds.KeyWithNamespaces([]string{"meta", strconv.FormatInt(topic, 10), key})
}

// Open opens or creates the datastore.
func (a *adapter) Open(jsonconfig json.RawMessage) error {
	if a.db != nil {
		return errors.New("leveldb adapter is already open")
	}

	var config configType
	if len(jsonconfig) > 0 {
		if err := json.Unmarshal(jsonconfig, &config); err != nil {
			return errors.New("leveldb adapter failed to parse config: " + err.Error())
		}
	}

	db, err := levelds.NewDatastore(config.Path, nil)
	if err != nil {
		return err
	}

	a.db = db
	a.path = config.Path
	a.timeout, _ = common.Timeouts(config.Timeout)
	a.version = -1

	return nil
}

// Close closes the datastore.
func (a *adapter) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
		a.version = -1
	}
	return err
}

// IsOpen returns true if the datastore has been opened.
func (a *adapter) IsOpen() bool {
	return a.db != nil
}

// GetDbVersion returns current database version.
func (a *adapter) GetDbVersion() (int, error) {
	if a.version > 0 {
		return a.version, nil
	}

	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	val, err := a.db.Get(ctx, versionKey)
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			err = common.ErrNotInitialized
		}
		return -1, err
	}

	vers, err := strconv.Atoi(string(val))
	if err != nil {
		return -1, err
	}
	a.version = vers

	return vers, nil
}

// CheckDbVersion checks whether the actual DB version matches the expected version of this adapter.
func (a *adapter) CheckDbVersion() error {
	version, err := a.GetDbVersion()
	if err != nil {
		return err
	}

	return common.CheckVersion(version, adpVersion)
}

// Version returns adapter version.
func (adapter) Version() int {
	return adpVersion
}

// GetName returns string that adapter uses to register itself with store.
func (a *adapter) GetName() string {
	return adapterName
}

// CreateDb initializes the storage. If reset is true, all existing keys are deleted first.
func (a *adapter) CreateDb(reset bool) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}

	if reset {
		results, err := a.db.Query(ctx, query.Query{KeysOnly: true})
		if err != nil {
			return err
		}
		entries, err := results.Rest()
		if err != nil {
			return err
		}

		batch, err := a.db.Batch(ctx)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err = batch.Delete(ctx, ds.NewKey(entry.Key)); err != nil {
				return err
			}
		}
		if err = batch.Commit(ctx); err != nil {
			return err
		}
	} else if found, err := a.db.Has(ctx, versionKey); err != nil {
		return err
	} else if found {
		return errors.New("Database already initialized")
	}

	a.version = -1
	return a.db.Put(ctx, versionKey, []byte(strconv.Itoa(adpVersion)))
}

func (a *adapter) getJSON(key ds.Key, result interface{}) (bool, error) {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	val, err := a.db.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, json.Unmarshal(val, result)
}

func (a *adapter) putJSON(key ds.Key, value interface{}) error {
	val, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	return a.db.Put(ctx, key, val)
}

// TopicUpsert creates or replaces a topic.
func (a *adapter) TopicUpsert(topic *t.Topic) error {
	return a.putJSON(topicKey(topic.Id), topic)
}

// TopicGet loads a single topic by id. Returns (nil, nil) if the topic does not exist.
func (a *adapter) TopicGet(id int64) (*t.Topic, error) {
	var topic t.Topic
	found, err := a.getJSON(topicKey(id), &topic)
	if !found || err != nil {
		return nil, err
	}
	return &topic, nil
}

// ReplyUpsert creates or replaces a reply.
func (a *adapter) ReplyUpsert(reply *t.Reply) error {
	return a.putJSON(replyKey(reply.Id), reply)
}

// ReplyGet loads a single reply by id. Returns (nil, nil) if the reply does not exist.
func (a *adapter) ReplyGet(id int64) (*t.Reply, error) {
	var reply t.Reply
	found, err := a.getJSON(replyKey(id), &reply)
	if !found || err != nil {
		return nil, err
	}
	return &reply, nil
}

// TopicMetaGet reads a metadata value attached to the topic.
func (a *adapter) TopicMetaGet(topic int64, key string) (json.RawMessage, error) {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	val, err := a.db.Get(ctx, metaKey(topic, key))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(val), nil
}

// TopicMetaUpsert creates or replaces a metadata value attached to the topic.
func (a *adapter) TopicMetaUpsert(topic int64, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return t.ErrMalformed
	}
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	return a.db.Put(ctx, metaKey(topic, key), value)
}

// TopicMetaDelete deletes the metadata record.
func (a *adapter) TopicMetaDelete(topic int64, key string) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	mk := metaKey(topic, key)
	// LevelDB deletes missing keys silently.
	found, err := a.db.Has(ctx, mk)
	if err != nil {
		return err
	}
	if !found {
		return t.ErrNotFound
	}
	return a.db.Delete(ctx, mk)
}

// GetTestAdapter returns an adapter object. It's required for running tests.
func GetTestAdapter() *adapter {
	return &adapter{}
}

func init() {
	store.RegisterAdapter(&adapter{})
}
