//go:build mysql
// +build mysql

// Package mysql is a database adapter for MySQL.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	ms "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/tinode/anonsub/server/db/common"
	"github.com/tinode/anonsub/server/store"
	t "github.com/tinode/anonsub/server/store/types"
)

// adapter holds MySQL connection data.
type adapter struct {
	db      *sqlx.DB
	dsn     string
	dbName  string
	version int

	// Single query timeout.
	sqlTimeout time.Duration
	// DB transaction timeout.
	txTimeout time.Duration
}

const (
	defaultDatabase = "anonsub"

	adpVersion  = 100
	adapterName = "mysql"
)

type configType struct {
	// DB connection settings.
	// Please, see https://pkg.go.dev/github.com/go-sql-driver/mysql#Config
	// for the full list of fields.
	ms.Config
	// Deprecated.
	DSN      string `json:"dsn,omitempty"`
	Database string `json:"database,omitempty"`

	// Connection pool settings.
	//
	// Maximum number of open connections to the database.
	MaxOpenConns int `json:"max_open_conns,omitempty"`
	// Maximum number of connections in the idle connection pool.
	MaxIdleConns int `json:"max_idle_conns,omitempty"`
	// Maximum amount of time a connection may be reused (in seconds).
	ConnMaxLifetime int `json:"conn_max_lifetime,omitempty"`

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
		return errors.New("mysql adapter is already connected")
	}

	if len(jsonconfig) < 2 {
		return errors.New("adapter mysql missing config")
	}

	var err error
	defaultCfg := ms.NewConfig()
	config := configType{Config: *defaultCfg}
	if err = json.Unmarshal(jsonconfig, &config); err != nil {
		return errors.New("mysql adapter failed to parse config: " + err.Error())
	}

	if dsn := config.FormatDSN(); dsn != defaultCfg.FormatDSN() {
		// MySQL config is specified. Use it.
		a.dbName = config.DBName
		a.dsn = dsn
		if config.DSN != "" || config.Database != "" {
			return errors.New("mysql config: `dsn` and `database` fields are deprecated. Please, specify individual connection settings via mysql.Config: https://pkg.go.dev/github.com/go-sql-driver/mysql#Config")
		}
	} else {
		// Otherwise, use DSN and Database to configure database connection.
		// Note: this method is deprecated.
		if config.DSN != "" {
			a.dsn = config.DSN
		} else {
			a.dsn = defaultCfg.FormatDSN()
		}
		a.dbName = config.Database
	}

	if a.dbName == "" {
		a.dbName = defaultDatabase
	}

	// This just initializes the driver but does not open the network connection.
	a.db, err = sqlx.Open("mysql", a.dsn)
	if err != nil {
		return err
	}

	// Actually opening the network connection.
	err = a.db.Ping()
	if isMissingDb(err) {
		// Ignore missing database here. If we are initializing the database
		// missing DB is OK.
		err = nil
	}
	if err == nil {
		if config.MaxOpenConns > 0 {
			a.db.SetMaxOpenConns(config.MaxOpenConns)
		}
		if config.MaxIdleConns > 0 {
			a.db.SetMaxIdleConns(config.MaxIdleConns)
		}
		if config.ConnMaxLifetime > 0 {
			a.db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)
		}
		a.sqlTimeout, a.txTimeout = common.Timeouts(config.SqlTimeout)
	}
	a.version = -1

	return err
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

// IsOpen returns true if connection to database has been established. It does not check if
// connection is actually live.
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
	err := a.db.GetContext(ctx, &vers, "SELECT `value` FROM kvmeta WHERE `key`='version'")
	if err != nil {
		if isMissingDb(err) || isMissingTable(err) || err == sql.ErrNoRows {
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

// CreateDb initializes the storage.
func (a *adapter) CreateDb(reset bool) error {
	var err error
	var tx *sql.Tx

	// Can't use an existing connection because it's configured with a database name which may not exist.
	// Don't care if it does not close cleanly.
	a.db.Close()

	// This DSN has been parsed before and produced no error, not checking for errors here.
	cfg, _ := ms.ParseDSN(a.dsn)
	// Clear database name
	cfg.DBName = ""

	a.db, err = sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return err
	}

	ctx, cancel := a.getContextForTx()
	if cancel != nil {
		defer cancel()
	}

	if tx, err = a.db.BeginTx(ctx, nil); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			// MySQL auto-commits on every CREATE TABLE, the rollback is best effort.
			tx.Rollback()
		}
	}()

	if reset {
		if _, err = tx.Exec("DROP DATABASE IF EXISTS " + a.dbName); err != nil {
			return err
		}
	}

	if _, err = tx.Exec("CREATE DATABASE " + a.dbName + " CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"); err != nil {
		return err
	}

	if _, err = tx.Exec("USE " + a.dbName); err != nil {
		return err
	}

	if _, err = tx.Exec(
		`CREATE TABLE kvmeta(` +
			"`key`   CHAR(32)," +
			"`value` TEXT," +
			"PRIMARY KEY(`key`)" +
			`)`); err != nil {
		return err
	}

	// Topics mirrored from the forum.
	if _, err = tx.Exec(
		`CREATE TABLE topics(
			id        BIGINT NOT NULL,
			createdat DATETIME(3) NOT NULL,
			updatedat DATETIME(3) NOT NULL,
			title     VARCHAR(512) NOT NULL DEFAULT '',
			permalink TEXT,
			state     VARCHAR(16) NOT NULL DEFAULT '',
			PRIMARY KEY(id)
		)`); err != nil {
		return err
	}

	// Replies mirrored from the forum.
	if _, err = tx.Exec(
		`CREATE TABLE replies(
			id          BIGINT NOT NULL,
			createdat   DATETIME(3) NOT NULL,
			updatedat   DATETIME(3) NOT NULL,
			topic       BIGINT NOT NULL,
			state       VARCHAR(16) NOT NULL DEFAULT '',
			authorname  VARCHAR(255) NOT NULL DEFAULT '',
			authoremail VARCHAR(255) NOT NULL DEFAULT '',
			content     MEDIUMTEXT,
			url         TEXT,
			PRIMARY KEY(id),
			INDEX replies_topic(topic)
		)`); err != nil {
		return err
	}

	// Per-topic metadata, i.e. lists of anonymous subscribers.
	if _, err = tx.Exec(
		`CREATE TABLE topicmeta(
			id     INT NOT NULL AUTO_INCREMENT,
			topic  BIGINT NOT NULL,
			mkey   VARCHAR(64) NOT NULL,
			mvalue JSON,
			PRIMARY KEY(id),
			UNIQUE INDEX topicmeta_topic_mkey(topic, mkey)
		)`); err != nil {
		return err
	}

	if _, err = tx.Exec("INSERT INTO kvmeta(`key`, `value`) VALUES('version', ?)", adpVersion); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	// Reconnect with the database name set.
	a.db.Close()
	a.db, err = sqlx.Open("mysql", a.dsn)
	a.version = -1
	return err
}

// TopicUpsert creates or replaces a topic.
func (a *adapter) TopicUpsert(topic *t.Topic) error {
	ctx, cancel := a.getContext()
	if cancel != nil {
		defer cancel()
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO topics(id,createdat,updatedat,title,permalink,state) VALUES(?,?,?,?,?,?)
			ON DUPLICATE KEY UPDATE updatedat=VALUES(updatedat),title=VALUES(title),
				permalink=VALUES(permalink),state=VALUES(state)`,
		topic.Id, topic.CreatedAt, topic.UpdatedAt, topic.Title, topic.Permalink, topic.State)
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
			ON DUPLICATE KEY UPDATE updatedat=VALUES(updatedat),topic=VALUES(topic),state=VALUES(state),
				authorname=VALUES(authorname),authoremail=VALUES(authoremail),content=VALUES(content),url=VALUES(url)`,
		reply.Id, reply.CreatedAt, reply.UpdatedAt, reply.Topic, reply.State,
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
	var value []byte
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
		"INSERT INTO topicmeta(topic,mkey,mvalue) VALUES(?,?,?) ON DUPLICATE KEY UPDATE mvalue=VALUES(mvalue)",
		topic, key, []byte(value))
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

func isMissingDb(err error) bool {
	if err == nil {
		return false
	}

	myerr, ok := err.(*ms.MySQLError)
	return ok && myerr.Number == 1049
}

func isMissingTable(err error) bool {
	if err == nil {
		return false
	}

	myerr, ok := err.(*ms.MySQLError)
	return ok && myerr.Number == 1146
}

func isDupe(err error) bool {
	if err == nil {
		return false
	}

	myerr, ok := err.(*ms.MySQLError)
	return ok && myerr.Number == 1062
}

// Convert driver errors into the store error taxonomy.
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case isDupe(err):
		return t.ErrDuplicate
	case errors.Is(err, context.DeadlineExceeded):
		return t.ErrFailed
	}
	return err
}

func init() {
	store.RegisterAdapter(&adapter{})
}
