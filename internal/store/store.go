// Package store is the Postgres gateway for job records: schema creation,
// conflict-skipping inserts, row counts and the report view.
//
// Every operation opens its own connection and closes it before
// returning. Nothing is pooled and no transaction spans two operations.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/report-service/internal/model"
)

// Conn is the subset of *pgx.Conn the gateway uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// Connector opens a new connection.
type Connector func(ctx context.Context) (Conn, error)

// InsertResult summarises one insert batch.
type InsertResult struct {
	Attempted int
	Added     int64 // row count after minus row count before
	Failed    int
}

// Store owns one jobs table and its report view.
type Store struct {
	connect Connector
	table   string
	view    string
	log     *slog.Logger
}

// New returns a Store for the given table and view names.
func New(connect Connector, table, view string) *Store {
	return &Store{
		connect: connect,
		table:   table,
		view:    view,
		log:     slog.Default().With("component", "store", "table", table),
	}
}

const existsSQL = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`

const createTableSQL = `CREATE TABLE IF NOT EXISTS {table} (
	job_position_id BIGINT,
	position_title TEXT,
	job_publish_date TIMESTAMP NOT NULL,
	org_name TEXT,
	position_location_display TEXT,
	job_location TEXT,
	in_multiple_locations BOOLEAN,
	job_url TEXT,
	min_salary_range FLOAT,
	max_salary_range FLOAT,
	record_created_date TIMESTAMP NOT NULL,
	search_parameters TEXT,
	created_by TEXT,
	UNIQUE (job_position_id, search_parameters)
)`

const createViewSQL = `CREATE OR REPLACE VIEW {view} AS
SELECT
	job_publish_date,
	position_title,
	org_name,
	position_location_display,
	in_multiple_locations,
	job_location,
	job_url,
	min_salary_range,
	max_salary_range,
	search_parameters
FROM {table}
WHERE job_publish_date >= date_trunc('month', current_date)
	AND job_publish_date < date_trunc('month', current_date) + interval '1 month'
	AND (
		job_location LIKE {cityPattern}
		OR position_location_display LIKE {multiplePattern}
		OR position_location_display = {remoteDisplay}
	)
ORDER BY job_publish_date DESC
LIMIT {limit}`

const countSQL = `SELECT COUNT(*) FROM {table}`

const insertSQL = `INSERT INTO {table} (
	job_position_id,
	position_title,
	job_publish_date,
	org_name,
	position_location_display,
	job_location,
	in_multiple_locations,
	job_url,
	min_salary_range,
	max_salary_range,
	record_created_date,
	search_parameters,
	created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (job_position_id, search_parameters) DO NOTHING`

const reportSQL = `SELECT
	position_title,
	job_publish_date,
	org_name,
	position_location_display,
	in_multiple_locations,
	job_url,
	min_salary_range,
	max_salary_range
FROM {view}`

func (s *Store) sql(tmpl string) string {
	return strings.NewReplacer(
		"{table}", pgx.Identifier{s.table}.Sanitize(),
		"{view}", pgx.Identifier{s.view}.Sanitize(),
		"{cityPattern}", quoteLiteral("%"+model.ReportCitySubstring+"%"),
		"{multiplePattern}", quoteLiteral("%"+model.ReportMultipleLocation+"%"),
		"{remoteDisplay}", quoteLiteral(model.ReportRemoteDisplay),
		"{limit}", strconv.Itoa(model.ReportLimit),
	).Replace(tmpl)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// withConn opens a connection, runs fn and closes the connection.
func (s *Store) withConn(ctx context.Context, fn func(Conn) error) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if cerr := conn.Close(ctx); cerr != nil {
			s.log.Warn("close connection failed", "err", cerr)
		}
	}()
	return fn(conn)
}

// TableExists checks the schema catalog for the table.
func (s *Store) TableExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.withConn(ctx, func(c Conn) error {
		return c.QueryRow(ctx, existsSQL, s.table).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", s.table, err)
	}
	return exists, nil
}

// EnsureSchema creates the table and the report view when the table is
// absent. An existing table is left alone, view included.
func (s *Store) EnsureSchema(ctx context.Context) error {
	exists, err := s.TableExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	s.log.Info("table does not exist, creating table and view", "view", s.view)
	return s.withConn(ctx, func(c Conn) error {
		if _, err := c.Exec(ctx, s.sql(createTableSQL)); err != nil {
			return fmt.Errorf("create table %s: %w", s.table, err)
		}
		if _, err := c.Exec(ctx, s.sql(createViewSQL)); err != nil {
			return fmt.Errorf("create view %s: %w", s.view, err)
		}
		s.log.Info("table and view created", "view", s.view)
		return nil
	})
}

// CountRows returns the current number of rows in the table.
func (s *Store) CountRows(ctx context.Context) (int64, error) {
	var n int64
	err := s.withConn(ctx, func(c Conn) error {
		return c.QueryRow(ctx, s.sql(countSQL)).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}

// InsertRecords inserts each record on its own, skipping rows whose
// (job id, search parameters) key already exists. A failed insert is
// logged and the batch goes on. Added is the row-count delta, so it only
// holds while no one else writes to the table.
func (s *Store) InsertRecords(ctx context.Context, records []model.JobRecord) (InsertResult, error) {
	res := InsertResult{Attempted: len(records)}

	before, err := s.CountRows(ctx)
	if err != nil {
		return res, err
	}

	err = s.withConn(ctx, func(c Conn) error {
		insert := s.sql(insertSQL)
		for _, r := range records {
			_, err := c.Exec(ctx, insert,
				r.ID, r.Title, r.PublishDate, r.Organization, r.LocationDisplay,
				r.City, r.InMultipleLocations, r.URL, r.MinSalary, r.MaxSalary,
				r.CreatedAt, r.SearchParams, r.CreatedBy,
			)
			if err != nil {
				res.Failed++
				s.log.Error("insert failed", "jobId", r.ID, "err", err)
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	after, err := s.CountRows(ctx)
	if err != nil {
		return res, err
	}
	res.Added = after - before

	s.log.Info("insert complete", "attempted", res.Attempted, "inserted", res.Added, "failed", res.Failed)
	return res, nil
}

// Populate ensures the schema exists and inserts records.
func (s *Store) Populate(ctx context.Context, records []model.JobRecord) (InsertResult, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return InsertResult{}, err
	}
	return s.InsertRecords(ctx, records)
}

// ReportRows reads the report view: at most model.ReportLimit rows,
// newest first.
func (s *Store) ReportRows(ctx context.Context) ([]model.ReportRow, error) {
	var out []model.ReportRow
	err := s.withConn(ctx, func(c Conn) error {
		rows, err := c.Query(ctx, s.sql(reportSQL))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r model.ReportRow
			if err := rows.Scan(
				&r.Title, &r.PublishDate, &r.Organization, &r.LocationDisplay,
				&r.InMultipleLocations, &r.URL, &r.MinSalary, &r.MaxSalary,
			); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.view, err)
	}
	return out, nil
}
