package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"uk.co.dudmesh.aura/internal/boot"
	"uk.co.dudmesh.aura/internal/model"
)

// Slot is one key/value entry, the equivalent of a browser localStorage item.
type Slot struct {
	Key       string    `db:"Key"`
	Value     string    `db:"Value"`
	Checksum  string    `db:"Checksum"`
	UpdatedAt time.Time `db:"UpdatedAt"`
}

type localstore struct {
	db *sqlx.DB
}

func New(config *boot.Config) (*localstore, error) {
	return open("file:" + config.StorePath())
}

// NewMemory opens a store that lives as long as the returned value is open.
// Stores opened with the same name share their data.
func NewMemory(name string) (*localstore, error) {
	return open("file:" + name + "?mode=memory&cache=shared")
}

func open(dsn string) (*localstore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &localstore{db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return store, nil
}

func (d *localstore) Close() error {
	return d.db.Close()
}

func (d *localstore) Get(key string) (string, error) {
	slot := &Slot{}
	err := d.db.Get(slot, `select * from slots where Key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrorSlotNotFound
		}
		return "", fmt.Errorf("fetching slot %s: %w", key, err)
	}
	if checksum(slot.Value) != slot.Checksum {
		return "", fmt.Errorf("slot %s: %w", key, model.ErrorStorageCorrupted)
	}
	return slot.Value, nil
}

// Set replaces the whole value of the slot in a single statement, so a
// reader never sees a partial write.
func (d *localstore) Set(key, value string) error {
	slot := &Slot{
		Key:       key,
		Value:     value,
		Checksum:  checksum(value),
		UpdatedAt: time.Now().UTC(),
	}
	res, err := d.db.NamedExec(`insert into slots (Key, Value, Checksum, UpdatedAt)
		values (:Key, :Value, :Checksum, :UpdatedAt)
		on conflict(Key) do update set
			Value = excluded.Value,
			Checksum = excluded.Checksum,
			UpdatedAt = excluded.UpdatedAt`, slot)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}
	return nil
}

func (d *localstore) Remove(key string) error {
	if _, err := d.db.Exec(`delete from slots where Key = ?`, key); err != nil {
		return fmt.Errorf("removing slot %s: %w", key, err)
	}
	return nil
}

func (d *localstore) createTables() error {
	_, err := d.db.Exec(`create table if not exists slots(
		Key       text not null primary key,
		Value     text not null,
		Checksum  text not null,
		UpdatedAt DATETIME not null
	)`)
	if err != nil {
		return fmt.Errorf("creating slots table: %w", err)
	}
	return nil
}

func checksum(value string) string {
	return strconv.FormatUint(xxhash.Sum64([]byte(value)), 16)
}
