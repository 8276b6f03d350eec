package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// fileSource is the part of Service the downloader needs.
type fileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, file *File, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader wraps Service to download files from a specific folder.
type Downloader struct {
	source fileSource
}

// NewDownloader creates a new Downloader.
func NewDownloader(s *Service) *Downloader {
	return &Downloader{source: s}
}

// DownloadFolderCSV downloads every CSV, XLSX and Google Sheet in the folder and
// returns the local CSV paths. XLSX files are converted from their first sheet;
// Google Sheets are exported as CSV by Drive.
func (d *Downloader) DownloadFolderCSV(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		base := filepath.Base(f.Name)
		ext := strings.ToLower(filepath.Ext(base))
		switch {
		case f.MimeType == mimeSpreadsheet:
			localPath := filepath.Join(opts.DownloadDir, strings.TrimSuffix(base, ext)+".csv")
			if err := d.download(ctx, f, localPath); err != nil {
				return nil, err
			}
			localPaths = append(localPaths, localPath)

		case ext == ".csv":
			localPath := filepath.Join(opts.DownloadDir, base)
			if err := d.download(ctx, f, localPath); err != nil {
				return nil, err
			}
			localPaths = append(localPaths, localPath)

		case ext == ".xlsx":
			tmpXLSXPath := filepath.Join(opts.DownloadDir, base)
			if err := d.download(ctx, f, tmpXLSXPath); err != nil {
				return nil, err
			}
			csvPath := filepath.Join(opts.DownloadDir, strings.TrimSuffix(base, filepath.Ext(base))+".csv")
			if err := convertXLSXToCSV(tmpXLSXPath, csvPath); err != nil {
				return nil, fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
			}
			_ = os.Remove(tmpXLSXPath)
			localPaths = append(localPaths, csvPath)
		}
	}

	return localPaths, nil
}

func (d *Downloader) download(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.source.DownloadFile(ctx, f, out); err != nil {
		out.Close()
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}
