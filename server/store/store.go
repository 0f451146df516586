// Package store provides methods for registering and accessing database adapters.
package store

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tinode/anonsub/server/store/adapter"
	"github.com/tinode/anonsub/server/store/types"
	"github.com/tinode/anonsub/server/validate"
)

var adp adapter.Adapter
var availableAdapters = make(map[string]adapter.Adapter)

type configType struct {
	// DB adapter name to use. Should be one of those specified in `Adapters`.
	UseAdapter string `json:"use_adapter"`
	// Configurations for individual adapters.
	Adapters map[string]json.RawMessage `json:"adapters"`
}

func openAdapter(jsonconf json.RawMessage) error {
	var config configType
	if err := json.Unmarshal(jsonconf, &config); err != nil {
		return errors.New("store: failed to parse config: " + err.Error() + "(" + string(jsonconf) + ")")
	}

	if adp == nil {
		if len(config.UseAdapter) > 0 {
			// Adapter name specified explicitly.
			if ad, ok := availableAdapters[config.UseAdapter]; ok {
				adp = ad
			} else {
				return errors.New("store: " + config.UseAdapter + " adapter is not available in this binary")
			}
		} else if len(availableAdapters) == 1 {
			// Default to the only entry in availableAdapters.
			for _, v := range availableAdapters {
				adp = v
			}
		} else {
			return errors.New("store: db adapter is not specified. Please set `store_config.use_adapter` in `anonsub.conf`")
		}
	}

	if adp.IsOpen() {
		return errors.New("store: connection is already opened")
	}

	var adapterConfig json.RawMessage
	if config.Adapters != nil {
		adapterConfig = config.Adapters[adp.GetName()]
	}

	return adp.Open(adapterConfig)
}

// PersistentStorageInterface defines methods used for interation with persistent storage.
type PersistentStorageInterface interface {
	Open(jsonconf json.RawMessage) error
	Close() error
	IsOpen() bool
	GetAdapter() adapter.Adapter
	GetAdapterName() string
	GetAdapterVersion() int
	GetDbVersion() int
	InitDb(jsonconf json.RawMessage, reset bool) error
	GetValidator(name string) validate.Validator
}

// Store is the main object for interacting with persistent storage.
var Store PersistentStorageInterface

type storeObj struct{}

// Open initializes the persistence system. Adapter holds a connection pool for a database instance.
//
//	jsonconf - configuration string
func (storeObj) Open(jsonconf json.RawMessage) error {
	if err := openAdapter(jsonconf); err != nil {
		return err
	}

	return adp.CheckDbVersion()
}

// Close terminates connection to persistent storage.
func (storeObj) Close() error {
	if adp != nil && adp.IsOpen() {
		return adp.Close()
	}

	return nil
}

// IsOpen checks if persistent storage connection has been initialized.
func (storeObj) IsOpen() bool {
	if adp != nil {
		return adp.IsOpen()
	}

	return false
}

// GetAdapter returns the currently configured adapter.
func (storeObj) GetAdapter() adapter.Adapter {
	return adp
}

// GetAdapterName returns the name of the current adater.
func (storeObj) GetAdapterName() string {
	if adp != nil {
		return adp.GetName()
	}

	return ""
}

// GetAdapterVersion returns version of the current adater.
func (storeObj) GetAdapterVersion() int {
	if adp != nil {
		return adp.Version()
	}

	return -1
}

// GetDbVersion returns version of the underlying database.
func (storeObj) GetDbVersion() int {
	if adp != nil {
		vers, _ := adp.GetDbVersion()
		return vers
	}

	return -1
}

// InitDb creates and configures a new database instance. If 'reset' is true it will first
// attempt to drop an existing database. If jsconf is nil it will assume that the adapter is
// already open. If it's non-nil and the adapter is not open, it will use the config string
// to open the adapter first.
func (s storeObj) InitDb(jsonconf json.RawMessage, reset bool) error {
	if !s.IsOpen() {
		if err := openAdapter(jsonconf); err != nil {
			return err
		}
	}
	return adp.CreateDb(reset)
}

// GetValidator returns registered validator by name.
func (storeObj) GetValidator(name string) validate.Validator {
	return validators[strings.ToLower(name)]
}

// RegisterAdapter makes a persistence adapter available.
// If Register is called twice or if the adapter is nil, it panics.
func RegisterAdapter(a adapter.Adapter) {
	if a == nil {
		panic("store: Register adapter is nil")
	}

	adapterName := a.GetName()
	if _, ok := availableAdapters[adapterName]; ok {
		panic("store: adapter '" + adapterName + "' is already registered")
	}
	availableAdapters[adapterName] = a
}

// useAdapter replaces the current adapter. Used in tests.
func useAdapter(a adapter.Adapter) {
	adp = a
}

// TopicsObjMapperInterface is an interface which defines methods for mirroring forum topics.
type TopicsObjMapperInterface interface {
	Get(id int64) (*types.Topic, error)
	Upsert(topic *types.Topic) error
}

// TopicsObjMapper is a struct to hold methods for persistence mapping for the Topic object.
type TopicsObjMapper struct{}

// Topics is an instance of TopicsObjMapper to map methods to.
var Topics TopicsObjMapperInterface

// Get a single topic. Returns (nil, nil) if the topic is not known.
func (TopicsObjMapper) Get(id int64) (*types.Topic, error) {
	return adp.TopicGet(id)
}

// Upsert creates or replaces the topic, updating its modification time.
func (TopicsObjMapper) Upsert(topic *types.Topic) error {
	if topic.Id <= 0 {
		return types.ErrMalformed
	}
	topic.InitTimes()
	topic.UpdatedAt = types.TimeNow()
	return adp.TopicUpsert(topic)
}

// RepliesObjMapperInterface is an interface which defines methods for mirroring forum replies.
type RepliesObjMapperInterface interface {
	Get(id int64) (*types.Reply, error)
	Upsert(reply *types.Reply) error
}

// RepliesObjMapper is a struct to hold methods for persistence mapping for the Reply object.
type RepliesObjMapper struct{}

// Replies is an instance of RepliesObjMapper to map methods to.
var Replies RepliesObjMapperInterface

// Get a single reply. Returns (nil, nil) if the reply is not known.
func (RepliesObjMapper) Get(id int64) (*types.Reply, error) {
	return adp.ReplyGet(id)
}

// Upsert creates or replaces the reply.
func (RepliesObjMapper) Upsert(reply *types.Reply) error {
	if reply.Id <= 0 || reply.Topic <= 0 {
		return types.ErrMalformed
	}
	reply.InitTimes()
	reply.UpdatedAt = types.TimeNow()
	return adp.ReplyUpsert(reply)
}

// SubscribersMetaKey is the key of the topic metadata record which holds anonymous subscribers.
const SubscribersMetaKey = "_bbp_anonymous_subscribed_emails"

// SubscribersObjMapperInterface is an interface which defines methods for persisting
// lists of anonymous subscribers.
type SubscribersObjMapperInterface interface {
	Get(topic int64) ([]string, error)
	Save(topic int64, emails []string) error
	Delete(topic int64) error
}

// SubscribersObjMapper stores subscribers as a metadata record attached to the topic.
type SubscribersObjMapper struct{}

// Subscribers is an instance of SubscribersObjMapper to map methods to.
var Subscribers SubscribersObjMapperInterface

// Get returns the list of emails subscribed to the topic. A missing record is reported as nil list.
func (SubscribersObjMapper) Get(topic int64) ([]string, error) {
	raw, err := adp.TopicMetaGet(topic, SubscribersMetaKey)
	if err != nil || len(raw) == 0 {
		return nil, err
	}

	var emails []string
	if err = json.Unmarshal(raw, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// Save replaces the list of subscribers. Saving an empty list is not allowed, use Delete instead.
func (SubscribersObjMapper) Save(topic int64, emails []string) error {
	if len(emails) == 0 {
		return types.ErrMalformed
	}
	raw, err := json.Marshal(emails)
	if err != nil {
		return err
	}
	return adp.TopicMetaUpsert(topic, SubscribersMetaKey, raw)
}

// Delete removes the subscribers record.
func (SubscribersObjMapper) Delete(topic int64) error {
	return adp.TopicMetaDelete(topic, SubscribersMetaKey)
}

var validators map[string]validate.Validator

// RegisterValidator registers validation scheme.
func RegisterValidator(name string, v validate.Validator) {
	name = strings.ToLower(name)
	if validators == nil {
		validators = make(map[string]validate.Validator)
	}

	if v == nil {
		panic("RegisterValidator: validator is nil")
	}
	if _, dup := validators[name]; dup {
		panic("RegisterValidator: called twice for validator " + name)
	}
	validators[name] = v
}

func init() {
	Store = storeObj{}
	Topics = TopicsObjMapper{}
	Replies = RepliesObjMapper{}
	Subscribers = SubscribersObjMapper{}
}
