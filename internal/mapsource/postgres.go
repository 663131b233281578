package mapsource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"clustermap.io/clustermap/internal/namemap"
)

// DefaultTable is the table PostgresSource reads when none is configured.
const DefaultTable = "environment_names"

// Querier is the subset of pgxpool.Pool / pgx.Conn the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// nameRecord is one (resource, environment) row of the names table.
type nameRecord struct {
	ResourceKey  string
	Ordinal      int64
	Environment  string
	ClusterName  *string
	DatabaseName *string
}

// PostgresSource reads rows from a table with one record per resource and
// environment:
//
//	resource_key  text     groups records into one logical row
//	ordinal       bigint   row order; later rows win on duplicate aliases
//	environment   text     environment tag
//	cluster_name  text     nullable
//	database_name text     nullable
type PostgresSource struct {
	db    Querier
	table string
}

// NewPostgresSource returns a source reading table through db.
func NewPostgresSource(db Querier, table string) *PostgresSource {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresSource{db: db, table: table}
}

// Name implements Source.
func (s *PostgresSource) Name() string { return "postgres:" + s.table }

func (s *PostgresSource) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// EnsureSchema creates the names table if it does not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	resource_key  TEXT   NOT NULL,
	ordinal       BIGINT NOT NULL,
	environment   TEXT   NOT NULL,
	cluster_name  TEXT,
	database_name TEXT,
	PRIMARY KEY (resource_key, environment)
)`, s.ident())
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Load implements Source.
func (s *PostgresSource) Load(ctx context.Context) ([]namemap.EnvironmentRow, error) {
	query := fmt.Sprintf(
		`SELECT resource_key, ordinal, environment, cluster_name, database_name
		   FROM %s
		  ORDER BY ordinal, resource_key, environment`, s.ident())

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[nameRecord])
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	return groupRecords(records), nil
}

// Upsert writes row under resourceKey, replacing any previous environments
// stored for that key. The replacement is one transaction, so a concurrent
// Load sees either the old row or the new one.
func (s *PostgresSource) Upsert(ctx context.Context, resourceKey string, ordinal int64, row namemap.EnvironmentRow) error {
	del := fmt.Sprintf(`DELETE FROM %s WHERE resource_key = $1`, s.ident())
	ins := fmt.Sprintf(
		`INSERT INTO %s (resource_key, ordinal, environment, cluster_name, database_name)
		 VALUES ($1, $2, $3, $4, $5)`, s.ident())

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, del, resourceKey); err != nil {
			return fmt.Errorf("clear %s: %w", resourceKey, err)
		}
		for _, tag := range row.Tags() {
			names := row[tag]
			if _, err := tx.Exec(ctx, ins, resourceKey, ordinal, string(tag),
				nullable(names.Cluster), nullable(names.Database)); err != nil {
				return fmt.Errorf("insert %s/%s: %w", resourceKey, tag, err)
			}
		}
		return nil
	})
}

// groupRecords folds per-environment records into rows, keeping the order in
// which each resource key first appears.
func groupRecords(records []nameRecord) []namemap.EnvironmentRow {
	index := make(map[string]int)
	var rows []namemap.EnvironmentRow
	for _, rec := range records {
		i, ok := index[rec.ResourceKey]
		if !ok {
			i = len(rows)
			index[rec.ResourceKey] = i
			rows = append(rows, namemap.EnvironmentRow{})
		}
		names := namemap.Names{Cluster: deref(rec.ClusterName), Database: deref(rec.DatabaseName)}
		if names.Cluster == "" && names.Database == "" {
			continue
		}
		rows[i][namemap.EnvironmentTag(rec.Environment)] = names
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
