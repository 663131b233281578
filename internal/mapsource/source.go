// Package mapsource loads environment name rows for building a registry.
package mapsource

import (
	"context"

	"clustermap.io/clustermap/internal/namemap"
)

// Source produces the ordered rows a registry is built from.
// Row order matters: later rows win on duplicate aliases.
type Source interface {
	// Name identifies the source in logs and diagnostics.
	Name() string

	// Load returns a fresh copy of the rows.
	Load(ctx context.Context) ([]namemap.EnvironmentRow, error)
}

// StaticSource serves a fixed set of rows.
type StaticSource struct {
	rows []namemap.EnvironmentRow
}

// NewStaticSource returns a source serving copies of rows.
func NewStaticSource(rows ...namemap.EnvironmentRow) *StaticSource {
	return &StaticSource{rows: cloneRows(rows)}
}

// Name implements Source.
func (s *StaticSource) Name() string { return "static" }

// Load implements Source.
func (s *StaticSource) Load(ctx context.Context) ([]namemap.EnvironmentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneRows(s.rows), nil
}

func cloneRows(rows []namemap.EnvironmentRow) []namemap.EnvironmentRow {
	out := make([]namemap.EnvironmentRow, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}
