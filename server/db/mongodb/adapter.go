//go:build mongodb
// +build mongodb

// Package mongodb is a database adapter for MongoDB.
package mongodb

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"time"

	"github.com/tinode/anonsub/server/db/common"
	"github.com/tinode/anonsub/server/logs"
	"github.com/tinode/anonsub/server/store"
	t "github.com/tinode/anonsub/server/store/types"
	b "go.mongodb.org/mongo-driver/bson"
	mdb "go.mongodb.org/mongo-driver/mongo"
	mdbopts "go.mongodb.org/mongo-driver/mongo/options"
)

// adapter holds MongoDB connection data.
type adapter struct {
	conn    *mdb.Client
	db      *mdb.Database
	dbName  string
	version int
	ctx     context.Context
	// Single query timeout.
	sqlTimeout time.Duration
}

const (
	defaultHost     = "localhost:27017"
	defaultDatabase = "anonsub"

	adpVersion  = 100
	adapterName = "mongodb"
)

// See https://godoc.org/go.mongodb.org/mongo-driver/mongo/options#ClientOptions for explanations.
type configType struct {
	Addresses      interface{} `json:"addresses,omitempty"`
	ConnectTimeout int         `json:"timeout,omitempty"`

	// Options separately from ClientOptions (custom options):
	Database   string `json:"database,omitempty"`
	ReplicaSet string `json:"replica_set,omitempty"`

	AuthMechanism string `json:"auth_mechanism,omitempty"`
	AuthSource    string `json:"auth_source,omitempty"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`

	UseTLS bool `json:"tls,omitempty"`

	// DB request timeout (in seconds).
	// If 0 (or negative), no timeout is applied.
	SqlTimeout int `json:"sql_timeout,omitempty"`
}

// metaRecord is a topic metadata record. The value is stored as a JSON string.
type metaRecord struct {
	Id    string `bson:"_id"`
	Topic int64  `bson:"topic"`
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

func (a *adapter) getContext() (context.Context, context.CancelFunc) {
	if a.sqlTimeout > 0 {
		return context.WithTimeout(a.ctx, a.sqlTimeout)
	}
	return a.ctx, nil
}

// Open initializes mongodb session
func (a *adapter) Open(jsonconfig json.RawMessage) error {
	if a.conn != nil {
		return errors.New("adapter mongodb is already connected")
	}

	if len(jsonconfig) < 2 {
		return errors.New("adapter mongodb missing config")
	}

	var err error
	var config configType
	if err = json.Unmarshal(jsonconfig, &config); err != nil {
		return errors.New("adapter mongodb failed to parse config: " + err.Error())
	}

	var opts mdbopts.ClientOptions

	if config.Addresses == nil {
		opts.SetHosts([]string{defaultHost})
	} else if host, ok := config.Addresses.(string); ok {
		opts.SetHosts([]string{host})
	} else if ihosts, ok := config.Addresses.([]interface{}); ok && len(ihosts) > 0 {
		hosts := make([]string, len(ihosts))
		for i, ih := range ihosts {
			h, ok := ih.(string)
			if !ok || h == "" {
				return errors.New("adapter mongodb invalid config.Addresses value")
			}
			hosts[i] = h
		}
		opts.SetHosts(hosts)
	} else {
		return errors.New("adapter mongodb failed to parse config.Addresses")
	}

	if config.Database == "" {
		a.dbName = defaultDatabase
	} else {
		a.dbName = config.Database
	}

	if config.ReplicaSet != "" {
		opts.SetReplicaSet(config.ReplicaSet)
	}

	if config.Username != "" {
		if config.AuthMechanism == "" {
			config.AuthMechanism = "SCRAM-SHA-256"
		}
		if config.AuthSource == "" {
			config.AuthSource = "admin"
		}
		opts.SetAuth(
			mdbopts.Credential{
				AuthMechanism: config.AuthMechanism,
				AuthSource:    config.AuthSource,
				Username:      config.Username,
				Password:      config.Password,
				PasswordSet:   config.Password != "",
			})
	}

	if config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(time.Duration(config.ConnectTimeout) * time.Second)
	}

	if config.UseTLS {
		opts.SetTLSConfig(&tls.Config{})
	}

	a.sqlTimeout, _ = common.Timeouts(config.SqlTimeout)
	a.ctx = context.Background()
	a.conn, err = mdb.Connect(a.ctx, &opts)
	if err != nil {
		return err
	}
	a.db = a.conn.Database(a.dbName)
	a.version = -1

	return nil
}

// Close the adapter
func (a *adapter) Close() error {
	var err error
	if a.conn != nil {
		err = a.conn.Disconnect(a.ctx)
		a.conn = nil
		a.version = -1
	}
	return err
}

// IsOpen checks if the adapter is ready for use
func (a *adapter) IsOpen() bool {
	return a.conn != nil
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
	var result struct {
		Key   string `bson:"_id"`
		Value int
	}
	if err := a.db.Collection("kvmeta").FindOne(ctx, b.M{"_id": "version"}).Decode(&result); err != nil {
		if err == mdb.ErrNoDocuments {
			err = common.ErrNotInitialized
		}
		return -1, err
	}

	a.version = result.Value
	return result.Value, nil
}

// CheckDbVersion checks if the actual database version matches adapter version.
func (a *adapter) CheckDbVersion() error {
	version, err := a.GetDbVersion()
	if err != nil {
		return err
	}

	return common.CheckVersion(version, adpVersion)
}

// Version returns adapter version
func (a *adapter) Version() int {
	return adpVersion
}

// GetName returns the name of the adapter
func (a *adapter) GetName() string {
	return adapterName
}

func (a *adapter) isDbInitialized() bool {
	var result map[string]int
	if err := a.db.Collection("kvmeta").FindOne(a.ctx, b.M{"_id": "version"}).Decode(&result); err != nil {
		return false
	}
	return true
}

// CreateDb creates the database optionally dropping an existing database first.
func (a *adapter) CreateDb(reset bool) error {
	if reset {
		logs.Info.Print("Dropping database...")
		if err := a.db.Drop(a.ctx); err != nil {
			return err
		}
	} else if a.isDbInitialized() {
		return errors.New("Database already initialized")
	}
	// Collections (tables) do not need to be explicitly created since MongoDB creates them with first write operation

	indexes := []struct {
		Collection string
		Field      string
		IndexOpts  mdb.IndexModel
	}{
		// Topics and replies are looked up by the forum-assigned id.
		{
			Collection: "topics",
			IndexOpts: mdb.IndexModel{
				Keys:    b.M{"id": 1},
				Options: mdbopts.Index().SetUnique(true),
			},
		},
		{
			Collection: "replies",
			IndexOpts: mdb.IndexModel{
				Keys:    b.M{"id": 1},
				Options: mdbopts.Index().SetUnique(true),
			},
		},
		{
			Collection: "replies",
			Field:      "topic",
		},
		// Metadata is keyed by "<topic>:<key>", the index is for listing all metadata of a topic.
		{
			Collection: "topicmeta",
			Field:      "topic",
		},
	}

	var err error
	for _, idx := range indexes {
		if idx.Field != "" {
			_, err = a.db.Collection(idx.Collection).Indexes().CreateOne(a.ctx, mdb.IndexModel{Keys: b.M{idx.Field: 1}})
		} else {
			_, err = a.db.Collection(idx.Collection).Indexes().CreateOne(a.ctx, idx.IndexOpts)
		}
		if err != nil {
			return err
		}
	}

	// Record current DB version.
	if _, err := a.db.Collection("kvmeta").InsertOne(a.ctx, map[string]interface{}{"_id": "version", "value": adpVersion}); err != nil {
		return err
	}

	a.version = -1
	return nil
}

// TopicUpsert creates or replaces a topic.
func (a *adapter) TopicUpsert(topic *t.Topic) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	_, err := a.db.Collection("topics").ReplaceOne(ctx, b.M{"id": topic.Id}, topic,
		mdbopts.Replace().SetUpsert(true))
	return convertError(err)
}

// TopicGet loads a single topic by id. Returns (nil, nil) if the topic does not exist.
func (a *adapter) TopicGet(id int64) (*t.Topic, error) {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	var topic t.Topic
	if err := a.db.Collection("topics").FindOne(ctx, b.M{"id": id}).Decode(&topic); err != nil {
		if err == mdb.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

// ReplyUpsert creates or replaces a reply.
func (a *adapter) ReplyUpsert(reply *t.Reply) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	_, err := a.db.Collection("replies").ReplaceOne(ctx, b.M{"id": reply.Id}, reply,
		mdbopts.Replace().SetUpsert(true))
	return convertError(err)
}

// ReplyGet loads a single reply by id. Returns (nil, nil) if the reply does not exist.
func (a *adapter) ReplyGet(id int64) (*t.Reply, error) {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	var reply t.Reply
	if err := a.db.Collection("replies").FindOne(ctx, b.M{"id": id}).Decode(&reply); err != nil {
		if err == mdb.ErrNoDocuments {
			return nil, nil
		}
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
	var rec metaRecord
	if err := a.db.Collection("topicmeta").FindOne(ctx, b.M{"_id": common.MetaId(topic, key)}).Decode(&rec); err != nil {
		if err == mdb.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(rec.Value), nil
}

// TopicMetaUpsert creates or replaces a metadata value attached to the topic.
func (a *adapter) TopicMetaUpsert(topic int64, key string, value json.RawMessage) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	id := common.MetaId(topic, key)
	_, err := a.db.Collection("topicmeta").ReplaceOne(ctx, b.M{"_id": id},
		&metaRecord{Id: id, Topic: topic, Key: key, Value: string(value)},
		mdbopts.Replace().SetUpsert(true))
	return convertError(err)
}

// TopicMetaDelete deletes the metadata record.
func (a *adapter) TopicMetaDelete(topic int64, key string) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	res, err := a.db.Collection("topicmeta").DeleteOne(ctx, b.M{"_id": common.MetaId(topic, key)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return t.ErrNotFound
	}
	return nil
}

// GetTestAdapter returns an adapter object. It's required for running tests.
func GetTestAdapter() *adapter {
	return &adapter{}
}

// Convert driver errors into the store error taxonomy.
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case mdb.IsDuplicateKeyError(err):
		return t.ErrDuplicate
	case mdb.IsTimeout(err):
		return t.ErrFailed
	}
	return err
}

func init() {
	store.RegisterAdapter(&adapter{})
}
