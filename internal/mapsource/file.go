package mapsource

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"clustermap.io/clustermap/internal/namemap"
)

// RowFile is the YAML document shape of a row file. Each row uses the raw
// "{tag}ClusterName" / "{tag}DatabaseName" keys:
//
//	rows:
//	  - publicClusterName: fake_cluster1
//	    publicDatabaseName: fake_database1
//	    mooncakeClusterName: fake_cluster2
//	    mooncakeDatabaseName: fake_database2
type RowFile struct {
	Rows []map[string]string `yaml:"rows"`
}

// FileSource reads rows from a YAML file on every Load.
type FileSource struct {
	path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return "file:" + s.path }

// Load implements Source.
func (s *FileSource) Load(ctx context.Context) ([]namemap.EnvironmentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open row file: %w", err)
	}
	defer f.Close()

	rows, err := DecodeRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return rows, nil
}

// DecodeRows parses a YAML row document. An empty document yields no rows.
func DecodeRows(r io.Reader) ([]namemap.EnvironmentRow, error) {
	var doc RowFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return namemap.ParseRows(doc.Rows), nil
}

// EncodeRows writes rows as a YAML row document.
func EncodeRows(w io.Writer, rows []namemap.EnvironmentRow) error {
	doc := RowFile{Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		doc.Rows = append(doc.Rows, row.RawRow())
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	return enc.Close()
}
