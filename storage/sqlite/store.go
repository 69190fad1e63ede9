// Package sqlite provides a Store backed by a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"dayplan/dateutil"
	"dayplan/event"
	"dayplan/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id                TEXT PRIMARY KEY,
	series_id         TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL,
	date              TEXT NOT NULL,
	start_time        TEXT NOT NULL,
	end_time          TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	location          TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	notification_lead INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_instances_series ON instances(series_id);
CREATE INDEX IF NOT EXISTS idx_instances_date ON instances(date);
`

const listColumns = `id, series_id, title, date, start_time, end_time, description, location, category, notification_lead`

// Store implements storage.Store on a SQLite database file.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path, creating the schema if needed.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "open sqlite database", Err: err}
	}
	// An in-memory sqlite database is private to the connection that opened
	// it. Cap the pool at one connection so every caller sees the same
	// database instead of a fresh schemaless one.
	if isMemoryPath(path) {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "apply schema", Err: err}
	}
	return &Store{db: db}, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// instanceRow is the flat database form of event.Instance. Date and times
// are stored in their canonical string forms so the rows stay readable and
// sortable with plain SQL.
type instanceRow struct {
	ID               string `db:"id"`
	SeriesID         string `db:"series_id"`
	Title            string `db:"title"`
	Date             string `db:"date"`
	StartTime        string `db:"start_time"`
	EndTime          string `db:"end_time"`
	Description      string `db:"description"`
	Location         string `db:"location"`
	Category         string `db:"category"`
	NotificationLead int    `db:"notification_lead"`
}

func toRow(inst event.Instance) instanceRow {
	return instanceRow{
		ID:               inst.ID,
		SeriesID:         inst.SeriesID,
		Title:            inst.Title,
		Date:             inst.Date.String(),
		StartTime:        inst.Start.String(),
		EndTime:          inst.End.String(),
		Description:      inst.Description,
		Location:         inst.Location,
		Category:         string(inst.Category),
		NotificationLead: inst.NotificationLead,
	}
}

func (r instanceRow) toInstance() (event.Instance, error) {
	date, err := dateutil.ParseDate(r.Date)
	if err != nil {
		return event.Instance{}, err
	}
	start, err := dateutil.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return event.Instance{}, err
	}
	end, err := dateutil.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return event.Instance{}, err
	}
	return event.Instance{
		ID:               r.ID,
		SeriesID:         r.SeriesID,
		Title:            r.Title,
		Date:             date,
		Start:            start,
		End:              end,
		Description:      r.Description,
		Location:         r.Location,
		Category:         event.Category(r.Category),
		NotificationLead: r.NotificationLead,
	}, nil
}

const insertQuery = `INSERT INTO instances (` + listColumns + `)
	VALUES (:id, :series_id, :title, :date, :start_time, :end_time, :description, :location, :category, :notification_lead)`

func (s *Store) List(ctx context.Context) ([]event.Instance, error) {
	return s.selectInstances(ctx,
		`SELECT `+listColumns+` FROM instances ORDER BY date, start_time, id`)
}

func (s *Store) Get(ctx context.Context, id string) (*event.Instance, error) {
	var row instanceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+listColumns+` FROM instances WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "instance " + id + " not found"}
	}
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "get instance", Err: err}
	}
	inst, err := row.toInstance()
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "corrupt row " + id, Err: err}
	}
	return &inst, nil
}

func (s *Store) Create(ctx context.Context, inst event.Instance) error {
	return s.CreateBatch(ctx, []event.Instance{inst})
}

func (s *Store) CreateBatch(ctx context.Context, instances []event.Instance) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, inst := range instances {
			if inst.ID == "" {
				return &storage.Error{Type: storage.ErrInvalidInput, Message: "instance id must not be empty"}
			}
			if err := insertRow(ctx, tx, inst); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Update(ctx context.Context, inst event.Instance) error {
	row := toRow(inst)
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE instances SET series_id = :series_id, title = :title, date = :date,
			start_time = :start_time, end_time = :end_time, description = :description,
			location = :location, category = :category, notification_lead = :notification_lead
		 WHERE id = :id`, row)
	if err != nil {
		return &storage.Error{Type: storage.ErrUnavailable, Message: "update instance", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "instance " + inst.ID + " not found"}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return &storage.Error{Type: storage.ErrUnavailable, Message: "delete instance", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "instance " + id + " not found"}
	}
	return nil
}

func (s *Store) ListSeries(ctx context.Context, seriesID string) ([]event.Instance, error) {
	if seriesID == "" {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "series id must not be empty"}
	}
	return s.selectInstances(ctx,
		`SELECT `+listColumns+` FROM instances WHERE series_id = ? ORDER BY date, start_time, id`, seriesID)
}

func (s *Store) DeleteSeries(ctx context.Context, seriesID string) error {
	if seriesID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "series id must not be empty"}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE series_id = ?`, seriesID); err != nil {
		return &storage.Error{Type: storage.ErrUnavailable, Message: "delete series", Err: err}
	}
	return nil
}

func (s *Store) ReplaceSeries(ctx context.Context, seriesID string, replacements []event.Instance) error {
	if seriesID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "series id must not be empty"}
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM instances WHERE series_id = ?`, seriesID); err != nil {
			return &storage.Error{Type: storage.ErrUnavailable, Message: "delete series", Err: err}
		}
		for _, inst := range replacements {
			if err := insertRow(ctx, tx, inst); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRow(ctx context.Context, tx *sqlx.Tx, inst event.Instance) error {
	var exists int
	err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM instances WHERE id = ?`, inst.ID)
	if err != nil {
		return &storage.Error{Type: storage.ErrUnavailable, Message: "check instance", Err: err}
	}
	if exists > 0 {
		return &storage.Error{Type: storage.ErrAlreadyExists, Message: "instance " + inst.ID + " already exists"}
	}
	if _, err := tx.NamedExecContext(ctx, insertQuery, toRow(inst)); err != nil {
		return &storage.Error{Type: storage.ErrUnavailable, Message: "insert instance", Err: err}
	}
	return nil
}

func (s *Store) selectInstances(ctx context.Context, query string, args ...any) ([]event.Instance, error) {
	var rows []instanceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "list instances", Err: err}
	}
	out := make([]event.Instance, 0, len(rows))
	for _, row := range rows {
		inst, err := row.toInstance()
		if err != nil {
			return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "corrupt row " + row.ID, Err: err}
		}
		out = append(out, inst)
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &storage.Error{Type: storage.ErrUnavailable, Message: "begin transaction", Err: err}
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return &storage.Error{Type: storage.ErrUnavailable, Message: "commit transaction", Err: err}
	}
	return nil
}
