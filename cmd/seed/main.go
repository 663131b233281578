// Package main loads a YAML row file into the PostgreSQL names table, or
// exports the table back to YAML.
//
//	seed -file names.yaml          upsert every row
//	seed -export -file names.yaml  write the table to names.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"clustermap.io/clustermap/internal/config"
	"clustermap.io/clustermap/internal/infrastructure"
	"clustermap.io/clustermap/internal/mapsource"
	"clustermap.io/clustermap/internal/namemap"
	"clustermap.io/clustermap/internal/pkg/logger"
)

// rowStore is the part of PostgresSource the seeder writes through.
type rowStore interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, resourceKey string, ordinal int64, row namemap.EnvironmentRow) error
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	file := flag.String("file", "", "row file (default: registry.file_path)")
	export := flag.Bool("export", false, "export the table to -file instead of importing")
	flag.Parse()

	if err := run(*configPath, *file, *export); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, file string, export bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if file == "" {
		file = cfg.Registry.FilePath
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	src := mapsource.NewPostgresSource(db.Pool, cfg.Registry.Table)

	if export {
		return exportRows(ctx, src, file)
	}

	rows, err := mapsource.NewFileSource(file).Load(ctx)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	logger.Info("Starting row seeding...", zap.String("file", file), zap.String("table", src.Name()))
	if err := seedRows(ctx, src, rows); err != nil {
		return err
	}
	logger.Info("Row seeding completed successfully", zap.Int("rows", len(rows)))
	return nil
}

// resourceKey names row i. Keys are positional so reseeding the same file is
// idempotent.
func resourceKey(i int) string {
	return fmt.Sprintf("row-%05d", i)
}

func seedRows(ctx context.Context, store rowStore, rows []namemap.EnvironmentRow) error {
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	for i, row := range rows {
		if len(row) == 0 {
			logger.Warn("Skipping empty row", zap.Int("index", i))
			continue
		}
		if err := store.Upsert(ctx, resourceKey(i), int64(i), row); err != nil {
			return fmt.Errorf("upsert row %d: %w", i, err)
		}
	}
	return nil
}

func exportRows(ctx context.Context, src mapsource.Source, path string) error {
	rows, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := mapsource.EncodeRows(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	logger.Info("Rows exported", zap.String("file", path), zap.Int("rows", len(rows)))
	return nil
}
