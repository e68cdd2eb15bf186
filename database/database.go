package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/mbolis/quick-feedback/config"
)

const busyTimeout = 5 * time.Second

// Open connects to the SQLite file named in cfg and brings its schema up
// to date. Foreign keys and the busy timeout are set through the DSN so
// every pooled connection gets them.
func Open(cfg config.Config) (db *sql.DB, err error) {
	dsn, err := DSN(cfg.DBDriver, cfg.DBUrl)
	if err != nil {
		return nil, err
	}

	db, err = sql.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "db.open")
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "db.migrate")
	}

	return db, nil
}

// DSN builds the connection string for the given driver. Write
// transactions take the lock at BEGIN so concurrent writers wait on the
// busy timeout instead of failing on a stale snapshot.
func DSN(driver, path string) (string, error) {
	q := url.Values{}
	switch driver {
	case "sqlite3":
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
		q.Set("_journal_mode", "WAL")
		q.Set("_txlock", "immediate")
	case "sqlite":
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
		q.Add("_pragma", "journal_mode(WAL)")
		q.Set("_txlock", "immediate")
	default:
		return "", errors.Errorf("unsupported driver %q", driver)
	}
	return "file:" + path + "?" + q.Encode(), nil
}
