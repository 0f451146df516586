//go:build sqlite
// +build sqlite

// Package sqlite is a database adapter for SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/tinode/anonsub/server/db/common"
	"github.com/tinode/anonsub/server/store"
	t "github.com/tinode/anonsub/server/store/types"
)

// adapter holds SQLite connection data.
type adapter struct {
	db      *sqlx.DB
	path    string
	version int

	// Single query timeout.
	sqlTimeout time.Duration
	// DB transaction timeout.
	txTimeout time.Duration
}

const (
	defaultDatabase = "./anonsub.db"

	adpVersion  = 100
	adapterName = "sqlite"
)

type configType struct {
	// Path to the database file.
	Database string `json:"database,omitempty"`
	// Maximum number of open connections to the database.
	MaxOpenConns int `json:"max_open_conns,omitempty"`
	// DB request timeout (in seconds).
	// If 0 (or negative), no timeout is applied.
	SqlTimeout int `json:"sql_timeout,omitempty"`
}

func (a *adapter) getContext() (context.Context, context.CancelFunc) {
	if a.sqlTimeout > 0 {
		return context.WithTimeout(context.Background(), a.sqlTimeout)
	}
	return context.Background(), nil
}

func (a *adapter) getContextForTx() (context.Context, context.CancelFunc) {
	if a.txTimeout > 0 {
		return context.WithTimeout(context.Background(), a.txTimeout)
	}
	return context.Background(), nil
}

// Open initializes database session
func (a *adapter) Open(jsonconfig json.RawMessage) error {
	if a.db != nil {
		return errors.New("sqlite adapter is already connected")
	}

	var config configType
	if len(jsonconfig) > 0 {
		if err := json.Unmarshal(jsonconfig, &config); err != nil {
			return errors.New("sqlite adapter failed to parse config: " + err.Error())
		}
	}

	a.path = config.Database
	if a.path == "" {
		a.path = defaultDatabase
	}

	var err error
	a.db, err = sqlx.Open("sqlite3", a.path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return err
	}

	// sql.Open does not open the database file. Force it here.
	if err = a.db.Ping(); err != nil {
		a.db.Close()
		a.db = nil
		return err
	}

	if config.MaxOpenConns > 0 {
		a.db.SetMaxOpenConns(config.MaxOpenConns)
	}
	a.sqlTimeout, a.txTimeout = common.Timeouts(config.SqlTimeout)
	a.version = -1

	return nil
}

// Close closes the underlying database connection
func (a *adapter) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
		a.version = -1
	}
	return err
}

// IsOpen returns true if the database file has been opened.
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
	var vers int
	err := a.db.GetContext(ctx, &vers, "SELECT value FROM kvmeta WHERE key='version'")
	if err != nil {
		if isMissingTable(err) || err == sql.ErrNoRows {
			err = common.ErrNotInitialized
		}
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

// CreateDb initializes the storage. SQLite has no databases to drop: tables are dropped instead.
func (a *adapter) CreateDb(reset bool) error {
	ctx, cancel := a.getContextForTx()
	if cancel != nil {
		defer cancel()
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if reset {
		for _, table := range []string{"topicmeta", "replies", "topics", "kvmeta"} {
			if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return err
			}
		}
	}

	if _, err = tx.ExecContext(ctx,
		`CREATE TABLE kvmeta(
			key   TEXT NOT NULL PRIMARY KEY,
			value TEXT
		)`); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`CREATE TABLE topics(
			id        INTEGER NOT NULL PRIMARY KEY,
			createdat DATETIME NOT NULL,
			updatedat DATETIME NOT NULL,
			title     TEXT NOT NULL DEFAULT '',
			permalink TEXT NOT NULL DEFAULT '',
			state     TEXT NOT NULL DEFAULT ''
		)`); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`CREATE TABLE replies(
			id          INTEGER NOT NULL PRIMARY KEY,
			createdat   DATETIME NOT NULL,
			updatedat   DATETIME NOT NULL,
			topic       INTEGER NOT NULL,
			state       TEXT NOT NULL DEFAULT '',
			authorname  TEXT NOT NULL DEFAULT '',
			authoremail TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL DEFAULT '',
			url         TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX replies_topic ON replies(topic);`); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`CREATE TABLE topicmeta(
			topic  INTEGER NOT NULL,
			mkey   TEXT NOT NULL,
			mvalue TEXT NOT NULL,
			PRIMARY KEY(topic, mkey)
		)`); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, "INSERT INTO kvmeta(key, value) VALUES('version', ?)", adpVersion); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
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
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO topics(id,createdat,updatedat,title,permalink,state) VALUES(?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET updatedat=excluded.updatedat,title=excluded.title,
				permalink=excluded.permalink,state=excluded.state`,
		topic.Id, topic.CreatedAt, topic.UpdatedAt, topic.Title, topic.Permalink, string(topic.State))
	return convertError(err)
}

// TopicGet loads a single topic by id. Returns (nil, nil) if the topic does not exist.
func (a *adapter) TopicGet(id int64) (*t.Topic, error) {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	var topic t.Topic
	err := a.db.GetContext(ctx, &topic,
		"SELECT id,createdat,updatedat,title,permalink,state FROM topics WHERE id=?", id)
	if err != nil {
		if err == sql.ErrNoRows {
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
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO replies(id,createdat,updatedat,topic,state,authorname,authoremail,content,url)
			VALUES(?,?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET updatedat=excluded.updatedat,topic=excluded.topic,state=excluded.state,
				authorname=excluded.authorname,authoremail=excluded.authoremail,content=excluded.content,url=excluded.url`,
		reply.Id, reply.CreatedAt, reply.UpdatedAt, reply.Topic, string(reply.State),
		reply.AuthorName, reply.AuthorEmail, reply.Content, reply.Url)
	return convertError(err)
}

// ReplyGet loads a single reply by id. Returns (nil, nil) if the reply does not exist.
func (a *adapter) ReplyGet(id int64) (*t.Reply, error) {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	var reply t.Reply
	err := a.db.GetContext(ctx, &reply,
		`SELECT id,createdat,updatedat,topic,state,authorname,authoremail,content,url
			FROM replies WHERE id=?`, id)
	if err != nil {
		if err == sql.ErrNoRows {
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
	var value string
	err := a.db.GetContext(ctx, &value, "SELECT mvalue FROM topicmeta WHERE topic=? AND mkey=?", topic, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(value), nil
}

// TopicMetaUpsert creates or replaces a metadata value attached to the topic.
func (a *adapter) TopicMetaUpsert(topic int64, key string, value json.RawMessage) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO topicmeta(topic,mkey,mvalue) VALUES(?,?,?)
			ON CONFLICT(topic,mkey) DO UPDATE SET mvalue=excluded.mvalue`,
		topic, key, string(value))
	return convertError(err)
}

// TopicMetaDelete deletes the metadata record.
func (a *adapter) TopicMetaDelete(topic int64, key string) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	res, err := a.db.ExecContext(ctx, "DELETE FROM topicmeta WHERE topic=? AND mkey=?", topic, key)
	if err != nil {
		return err
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return t.ErrNotFound
	}
	return nil
}

// GetTestAdapter returns an adapter object. It's required for running tests.
func GetTestAdapter() *adapter {
	return &adapter{}
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// Convert driver errors into the store error taxonomy.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var sqerr sqlite3.Error
	if errors.As(err, &sqerr) {
		switch sqerr.Code {
		case sqlite3.ErrConstraint:
			return t.ErrDuplicate
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return t.ErrFailed
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return t.ErrFailed
	}
	return err
}

func init() {
	store.RegisterAdapter(&adapter{})
}
