package main

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/cache"
	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/andresuchdata/pricetrack/backend-go/internal/drive"
	"github.com/andresuchdata/pricetrack/backend-go/internal/importer"
	"github.com/andresuchdata/pricetrack/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

func repositoryFor(db *sql.DB) *repository.IngestRepository {
	return repository.NewIngestRepository(db)
}

func importLocal(c *cli.Context) error {
	dir := c.String("dir")
	files, err := importer.CollectCSVFiles(dir)
	if err != nil {
		return fmt.Errorf("error walking import directory: %w", err)
	}
	if len(files) == 0 {
		log.Warn().Str("dir", dir).Msg("No CSV files found")
		return nil
	}
	return runImport(c, dir, files)
}

func importS3(c *cli.Context) error {
	downloader, err := newS3Downloader(c)
	if err != nil {
		return err
	}
	files, err := downloader.download(c.Context, c.String("s3-prefix"), c.String("object"))
	if err != nil {
		return err
	}
	return runImport(c, downloader.destDir, files)
}

func importDrive(c *cli.Context) error {
	svc, err := drive.NewService(c.Context, config.DriveConfig{
		CredentialsFile: c.String("credentials"),
		FolderID:        c.String("folder-id"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Google Drive service: %w", err)
	}

	folderID := c.String("folder-id")
	if folderID == "" {
		if folderID, err = svc.FindFolderByPath(c.Context, c.String("folder-path")); err != nil {
			return err
		}
	}

	downloadDir := c.String("download-dir")
	files, err := drive.NewDownloader(svc).DownloadFolderCSV(c.Context, drive.DownloadOptions{
		FolderID:    folderID,
		DownloadDir: downloadDir,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warn().Str("folder_id", folderID).Msg("No importable files found in Drive folder")
		return nil
	}
	return runImport(c, downloadDir, files)
}

// runImport writes files collected under root. Rows are keyed by their path
// relative to root, so same-named files in different folders stay distinct.
func runImport(c *cli.Context, root string, files []string) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	repo := repositoryFor(db)

	if c.Bool("migrate") {
		if err := repo.Migrate(c.Context); err != nil {
			return err
		}
	}

	log.Info().Int("files", len(files)).Int("workers", c.Int("workers")).Msg("Starting import")
	start := time.Now()

	bar := progressbar.Default(int64(len(files)), "importing")
	imp := importer.New(repo, importer.Options{
		Workers:   c.Int("workers"),
		BatchSize: c.Int("batch-size"),
		Root:      root,
		OnFile: func(path string, rows, skipped int) {
			bar.Describe(filepath.Base(path))
			_ = bar.Add(1)
		},
	})

	result, err := imp.ImportFiles(c.Context, files)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	log.Info().
		Int("files", result.Files).
		Int("rows", result.Rows).
		Int("skipped", result.Skipped).
		Int("products", result.Products).
		Int("suppliers", result.Suppliers).
		Int("transactions", result.Transactions).
		Dur("took", time.Since(start)).
		Msg("Import completed")

	if !c.Bool("keep-cache") {
		invalidateHistoryCache(c)
	}
	return nil
}

// invalidateHistoryCache drops cached history so the dashboard sees the new rows.
func invalidateHistoryCache(c *cli.Context) {
	historyCache, err := cache.NewHistoryCache(config.Load().Cache)
	if err != nil {
		log.Warn().Err(err).Msg("Could not connect to history cache, skipping invalidation")
		return
	}
	if err := historyCache.InvalidateAll(c.Context); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate history cache")
		return
	}
	log.Info().Msg("History cache invalidated")
}
