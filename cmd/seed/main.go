package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/andresuchdata/pricetrack/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/pricetrack/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type contextKey string

const dbKey contextKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	dbURL := c.String("db-url")
	if dbURL == "" {
		dbURL = postgres.DSN(&config.Load().Database)
	}

	// Initialize database connection
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not found in context")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := config.Load()
	logger.Configure("debug", cfg.App.LogLevel)

	app := &cli.App{
		Name:  "seed",
		Usage: "Create the schema and import purchase transactions",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the products, suppliers and purchase_transactions tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "import",
				Usage: "Import purchase transaction CSV files",
				Subcommands: []*cli.Command{
					{
						Name:  "local",
						Usage: "Import CSV files from a local directory",
						Flags: append(importFlags(),
							&cli.StringFlag{
								Name:    "dir",
								Usage:   "Directory containing transaction CSV files",
								Value:   cfg.App.ImportDir,
								EnvVars: []string{"APP_IMPORT_DIR"},
							},
						),
						Before: initDB,
						After:  closeDB,
						Action: importLocal,
					},
					{
						Name:   "s3",
						Usage:  "Download CSV files from an S3-compatible bucket, then import them",
						Flags:  append(importFlags(), s3Flags()...),
						Before: initDB,
						After:  closeDB,
						Action: importS3,
					},
					{
						Name:  "drive",
						Usage: "Download CSV, XLSX and Google Sheets files from a Drive folder, then import them",
						Flags: append(importFlags(),
							&cli.StringFlag{
								Name:    "credentials",
								Usage:   "Service account key file or JSON",
								EnvVars: []string{"GOOGLE_CREDENTIALS_FILE"},
							},
							&cli.StringFlag{
								Name:    "folder-id",
								Usage:   "Drive folder id",
								EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
							},
							&cli.StringFlag{
								Name:  "folder-path",
								Usage: "Slash separated folder path, used when no folder id is given",
							},
							&cli.StringFlag{
								Name:  "download-dir",
								Usage: "Where downloaded files are stored",
								Value: "./data/tmp/drive",
							},
						),
						Before: initDB,
						After:  closeDB,
						Action: importDrive,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of files parsed concurrently",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Rows written per transaction",
			Value: 1000,
		},
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Create the schema before importing",
		},
		&cli.BoolFlag{
			Name:  "keep-cache",
			Usage: "Do not invalidate cached price history after the import",
		},
	}
}

func s3Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "s3-endpoint", Usage: "S3-compatible endpoint", EnvVars: []string{"S3_ENDPOINT"}},
		&cli.StringFlag{Name: "s3-access-key", Usage: "Access key", EnvVars: []string{"S3_ACCESS_KEY"}},
		&cli.StringFlag{Name: "s3-secret-key", Usage: "Secret key", EnvVars: []string{"S3_SECRET_KEY"}},
		&cli.StringFlag{Name: "s3-bucket", Usage: "Bucket holding the exports", EnvVars: []string{"S3_BUCKET"}},
		&cli.StringFlag{Name: "s3-region", Usage: "Bucket region", EnvVars: []string{"S3_REGION"}},
		&cli.StringFlag{Name: "s3-prefix", Usage: "Key prefix to list", Value: "imports/", EnvVars: []string{"S3_PREFIX"}},
		&cli.BoolFlag{Name: "s3-use-ssl", Usage: "Use https when the endpoint has no scheme", Value: true, EnvVars: []string{"S3_USE_SSL"}},
		&cli.StringFlag{Name: "object", Usage: "Import a single object instead of the whole prefix"},
		&cli.StringFlag{Name: "download-dir", Usage: "Where downloaded files are stored", Value: "./data/tmp/s3"},
	}
}

func runMigrate(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}
	if err := repositoryFor(db).Migrate(c.Context); err != nil {
		return err
	}
	log.Info().Msg("Schema is up to date")
	return nil
}
