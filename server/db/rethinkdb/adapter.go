//go:build rethinkdb
// +build rethinkdb

// Package rethinkdb is a database adapter for RethinkDB.
package rethinkdb

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/tinode/anonsub/server/db/common"
	"github.com/tinode/anonsub/server/store"
	t "github.com/tinode/anonsub/server/store/types"
	rdb "gopkg.in/rethinkdb/rethinkdb-go.v6"
)

// adapter holds RethinkDb connection data.
type adapter struct {
	conn    *rdb.Session
	dbName  string
	version int
}

const (
	defaultHost     = "localhost:28015"
	defaultDatabase = "anonsub"

	adpVersion  = 100
	adapterName = "rethinkdb"
)

// See https://godoc.org/github.com/rethinkdb/rethinkdb-go#ConnectOpts for explanations.
type configType struct {
	Database     string      `json:"database,omitempty"`
	Addresses    interface{} `json:"addresses,omitempty"`
	Username     string      `json:"username,omitempty"`
	Password     string      `json:"password,omitempty"`
	AuthKey      string      `json:"authkey,omitempty"`
	Timeout      int         `json:"timeout,omitempty"`
	WriteTimeout int         `json:"write_timeout,omitempty"`
	ReadTimeout  int         `json:"read_timeout,omitempty"`
	MaxIdle      int         `json:"max_idle,omitempty"`
	MaxOpen      int         `json:"max_open,omitempty"`
}

// metaRecord is a topic metadata record. The value is stored as a JSON string.
type metaRecord struct {
	Id    string
	Topic int64
	Key   string
	Value string
}

// Open initializes rethinkdb session
func (a *adapter) Open(jsonconfig json.RawMessage) error {
	if a.conn != nil {
		return errors.New("adapter rethinkdb is already connected")
	}

	if len(jsonconfig) < 2 {
		return errors.New("adapter rethinkdb missing config")
	}

	var err error
	var config configType
	if err = json.Unmarshal(jsonconfig, &config); err != nil {
		return errors.New("adapter rethinkdb failed to parse config: " + err.Error())
	}

	var opts rdb.ConnectOpts

	if config.Addresses == nil {
		opts.Address = defaultHost
	} else if host, ok := config.Addresses.(string); ok {
		opts.Address = host
	} else if ihosts, ok := config.Addresses.([]interface{}); ok && len(ihosts) > 0 {
		hosts := make([]string, len(ihosts))
		for i, ih := range ihosts {
			h, ok := ih.(string)
			if !ok || h == "" {
				return errors.New("adapter rethinkdb invalid config.Addresses value")
			}
			hosts[i] = h
		}
		opts.Addresses = hosts
	} else {
		return errors.New("adapter rethinkdb failed to parse config.Addresses")
	}

	if config.Database == "" {
		a.dbName = defaultDatabase
	} else {
		a.dbName = config.Database
	}

	opts.Database = a.dbName
	opts.Username = config.Username
	opts.Password = config.Password
	opts.AuthKey = config.AuthKey
	opts.Timeout = time.Duration(config.Timeout) * time.Second
	opts.WriteTimeout = time.Duration(config.WriteTimeout) * time.Second
	opts.ReadTimeout = time.Duration(config.ReadTimeout) * time.Second
	opts.MaxIdle = config.MaxIdle
	opts.MaxOpen = config.MaxOpen

	a.conn, err = rdb.Connect(opts)
	if err != nil {
		return err
	}

	a.version = -1
	return nil
}

// Close closes the underlying database connection
func (a *adapter) Close() error {
	var err error
	if a.conn != nil {
		// Close will wait for all outstanding requests to finish
		err = a.conn.Close()
		a.conn = nil
		a.version = -1
	}
	return err
}

// IsOpen returns true if connection to database has been established. It does not check if
// connection is actually live.
func (a *adapter) IsOpen() bool {
	return a.conn != nil
}

// GetDbVersion returns current database version.
func (a *adapter) GetDbVersion() (int, error) {
	if a.version > 0 {
		return a.version, nil
	}

	cursor, err := rdb.DB(a.dbName).Table("kvmeta").Get("version").Field("value").Run(a.conn)
	if err != nil {
		if isMissingDb(err) {
			err = common.ErrNotInitialized
		}
		return -1, err
	}
	defer cursor.Close()

	if cursor.IsNil() {
		return -1, common.ErrNotInitialized
	}

	var vers int
	if err = cursor.One(&vers); err != nil {
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

// CreateDb initializes the storage. If reset is true, the database is first deleted losing all the data.
func (a *adapter) CreateDb(reset bool) error {
	// Drop database if exists, ignore error if it does not.
	if reset {
		rdb.DBDrop(a.dbName).RunWrite(a.conn)
	}

	if _, err := rdb.DBCreate(a.dbName).RunWrite(a.conn); err != nil {
		return err
	}

	// Table with metadata key-value pairs.
	if _, err := rdb.DB(a.dbName).TableCreate("kvmeta", rdb.TableCreateOpts{PrimaryKey: "key"}).RunWrite(a.conn); err != nil {
		return err
	}

	// Topics mirrored from the forum.
	if _, err := rdb.DB(a.dbName).TableCreate("topics", rdb.TableCreateOpts{PrimaryKey: "Id"}).RunWrite(a.conn); err != nil {
		return err
	}

	// Replies mirrored from the forum.
	if _, err := rdb.DB(a.dbName).TableCreate("replies", rdb.TableCreateOpts{PrimaryKey: "Id"}).RunWrite(a.conn); err != nil {
		return err
	}
	if _, err := rdb.DB(a.dbName).Table("replies").IndexCreate("Topic").RunWrite(a.conn); err != nil {
		return err
	}

	// Per-topic metadata. The primary key is a Topic:Key string.
	if _, err := rdb.DB(a.dbName).TableCreate("topicmeta", rdb.TableCreateOpts{PrimaryKey: "Id"}).RunWrite(a.conn); err != nil {
		return err
	}
	if _, err := rdb.DB(a.dbName).Table("topicmeta").IndexCreate("Topic").RunWrite(a.conn); err != nil {
		return err
	}

	// Record current DB version.
	if _, err := rdb.DB(a.dbName).Table("kvmeta").Insert(
		map[string]interface{}{"key": "version", "value": adpVersion}).RunWrite(a.conn); err != nil {
		return err
	}

	a.version = -1
	return nil
}

// TopicUpsert creates or replaces a topic.
func (a *adapter) TopicUpsert(topic *t.Topic) error {
	_, err := rdb.DB(a.dbName).Table("topics").Insert(topic, rdb.InsertOpts{Conflict: "replace"}).RunWrite(a.conn)
	return err
}

// TopicGet loads a single topic by id. Returns (nil, nil) if the topic does not exist.
func (a *adapter) TopicGet(id int64) (*t.Topic, error) {
	var topic t.Topic
	found, err := a.getOne("topics", id, &topic)
	if !found || err != nil {
		return nil, err
	}
	return &topic, nil
}

// ReplyUpsert creates or replaces a reply.
func (a *adapter) ReplyUpsert(reply *t.Reply) error {
	_, err := rdb.DB(a.dbName).Table("replies").Insert(reply, rdb.InsertOpts{Conflict: "replace"}).RunWrite(a.conn)
	return err
}

// ReplyGet loads a single reply by id. Returns (nil, nil) if the reply does not exist.
func (a *adapter) ReplyGet(id int64) (*t.Reply, error) {
	var reply t.Reply
	found, err := a.getOne("replies", id, &reply)
	if !found || err != nil {
		return nil, err
	}
	return &reply, nil
}

// TopicMetaGet reads a metadata value attached to the topic.
func (a *adapter) TopicMetaGet(topic int64, key string) (json.RawMessage, error) {
	var rec metaRecord
	found, err := a.getOne("topicmeta", common.MetaId(topic, key), &rec)
	if !found || err != nil {
		return nil, err
	}
	return json.RawMessage(rec.Value), nil
}

// TopicMetaUpsert creates or replaces a metadata value attached to the topic.
func (a *adapter) TopicMetaUpsert(topic int64, key string, value json.RawMessage) error {
	rec := &metaRecord{Id: common.MetaId(topic, key), Topic: topic, Key: key, Value: string(value)}
	_, err := rdb.DB(a.dbName).Table("topicmeta").Insert(rec, rdb.InsertOpts{Conflict: "replace"}).RunWrite(a.conn)
	return err
}

// TopicMetaDelete deletes the metadata record.
func (a *adapter) TopicMetaDelete(topic int64, key string) error {
	res, err := rdb.DB(a.dbName).Table("topicmeta").Get(common.MetaId(topic, key)).Delete().RunWrite(a.conn)
	if err != nil {
		return err
	}
	if res.Deleted == 0 {
		return t.ErrNotFound
	}
	return nil
}

// getOne fetches a document by primary key. Returns false if the document does not exist.
func (a *adapter) getOne(table string, id interface{}, result interface{}) (bool, error) {
	cursor, err := rdb.DB(a.dbName).Table(table).Get(id).Run(a.conn)
	if err != nil {
		return false, err
	}
	defer cursor.Close()

	if cursor.IsNil() {
		return false, nil
	}
	if err = cursor.One(result); err != nil {
		if err == rdb.ErrEmptyResult {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetTestAdapter returns an adapter object. It's required for running tests.
func GetTestAdapter() *adapter {
	return &adapter{}
}

func isMissingDb(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "` does not exist")
}

func init() {
	store.RegisterAdapter(&adapter{})
}
