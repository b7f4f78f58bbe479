package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/store"
	_ "github.com/mattn/go-sqlite3"
)

// NewStorage returns a dataset store backed by the sqlite file at path.
// Datasets older than retention are purged periodically; zero keeps them.
func NewStorage(path string, retention time.Duration) *Storage {
	return &Storage{
		path:      path,
		retention: retention,
		interval:  60 * time.Second,
		logger:    slog.Default(),
	}
}

var _ store.DatasetStore = (*Storage)(nil)

type Storage struct {
	path      string
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	db        *sql.DB
	closeCh   chan struct{}
	doneCh    chan struct{}
}

func (s *Storage) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *Storage) Open() error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	for _, sqlText := range schema {
		if _, err := db.Exec(sqlText); err != nil {
			db.Close()
			return fmt.Errorf("create table: %w", err)
		}
	}
	s.db = db
	s.closeCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.runShrinkLoop()
	return nil
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	close(s.closeCh)
	<-s.doneCh
	err := s.db.Close()
	s.db = nil
	return err
}

var schema = []string{
	strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS DATASETS",
		"(",
		"name TEXT NOT NULL PRIMARY KEY,",
		"created timestamp NOT NULL,",
		"row_count INTEGER NOT NULL,",
		"column_names TEXT",
		")",
	}, " "),
	strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS DATASET_ROWS",
		"(",
		"name TEXT NOT NULL,",
		"seq INTEGER NOT NULL,",
		"data TEXT NOT NULL,",
		"PRIMARY KEY (name, seq)",
		")",
	}, " "),
}

func (s *Storage) runShrinkLoop() {
	defer close(s.doneCh)
	if s.retention <= 0 {
		<-s.closeCh
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.shrink(context.Background(), time.Now().Add(-s.retention))
		case <-s.closeCh:
			return
		}
	}
}

func (s *Storage) Save(ctx context.Context, name string, tbl dataset.Table) error {
	columns, err := json.Marshal(tbl.Columns)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM DATASET_ROWS WHERE name = ?", name); err != nil {
		return err
	}
	sqlText := strings.Join([]string{
		"INSERT OR REPLACE INTO DATASETS",
		"(name, created, row_count, column_names)",
		"VALUES (?,?,?,?)",
	}, " ")
	if _, err := tx.ExecContext(ctx, sqlText, name, time.Now(), len(tbl.Rows), string(columns)); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO DATASET_ROWS (name, seq, data) VALUES (?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, row := range tbl.Rows {
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, name, i, string(b)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("Saved dataset", "name", name, "rows", len(tbl.Rows))
	return nil
}

func (s *Storage) Load(ctx context.Context, name string) (dataset.Table, error) {
	var columns sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT column_names FROM DATASETS WHERE name = ?", name).Scan(&columns)
	if err == sql.ErrNoRows {
		return dataset.Table{}, fmt.Errorf("dataset %q: %w", name, store.ErrNotFound)
	} else if err != nil {
		return dataset.Table{}, err
	}
	var ret dataset.Table
	if columns.Valid && columns.String != "" {
		if err := json.Unmarshal([]byte(columns.String), &ret.Columns); err != nil {
			return dataset.Table{}, fmt.Errorf("dataset %q columns: %w", name, err)
		}
	}

	sqlText := strings.Join([]string{
		"SELECT data",
		"FROM DATASET_ROWS",
		"WHERE name = ?",
		"ORDER BY seq ASC",
	}, " ")
	rows, err := s.db.QueryContext(ctx, sqlText, name)
	if err != nil {
		return dataset.Table{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return dataset.Table{}, err
		}
		dec := json.NewDecoder(bytes.NewBufferString(data))
		dec.UseNumber()
		var row dataset.Row
		if err := dec.Decode(&row); err != nil {
			return dataset.Table{}, fmt.Errorf("dataset %q row: %w", name, err)
		}
		ret.Rows = append(ret.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return dataset.Table{}, err
	}
	return ret, nil
}

func (s *Storage) List(ctx context.Context) ([]store.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, created, row_count, column_names FROM DATASETS ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []store.Dataset
	for rows.Next() {
		var (
			ds      store.Dataset
			columns sql.NullString
		)
		if err := rows.Scan(&ds.Name, &ds.Created, &ds.Rows, &columns); err != nil {
			return nil, err
		}
		if columns.Valid && columns.String != "" {
			if err := json.Unmarshal([]byte(columns.String), &ds.Columns); err != nil {
				s.logger.Warn("Invalid dataset columns", "dataset", ds.Name, "error", err)
			}
		}
		ret = append(ret, ds)
	}
	return ret, rows.Err()
}

func (s *Storage) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	result, err := tx.ExecContext(ctx, "DELETE FROM DATASETS WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("dataset %q: %w", name, store.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM DATASET_ROWS WHERE name = ?", name); err != nil {
		return err
	}
	return tx.Commit()
}

// shrink deletes the datasets saved before cutoff.
func (s *Storage) shrink(ctx context.Context, cutoff time.Time) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM DATASETS WHERE created < ?", cutoff)
	if err != nil {
		s.logger.Error("Failed to find expired datasets", "error", err)
		return
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			names = append(names, name)
		}
	}
	rows.Close()
	for _, name := range names {
		if err := s.Delete(ctx, name); err != nil {
			s.logger.Error("Failed to shrink dataset", "dataset", name, "error", err)
			continue
		}
		s.logger.Debug("Shrunk dataset", "dataset", name, "cutoff", cutoff)
	}
}
