package fetch

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Payload is a fetched binary resource plus the headers needed to save it.
type Payload struct {
	Data        []byte
	ContentType string
	// Disposition is a Content-Disposition style header value that may
	// suggest a filename.
	Disposition string
}

// SaveFunc is the injected save capability: it persists the payload under the
// resolved filename. The fetch layer never touches the environment directly.
type SaveFunc func(data []byte, filename, contentType string) error

// Downloader fetches a binary resource and hands it to the save capability.
// Unlike the fetchers it returns its failure to the caller as well, so
// resource-specific fallback text can be applied on top of the stored message.
type Downloader struct {
	mu      sync.Mutex
	loading bool
	errMsg  string
	save    SaveFunc
	logger  *zap.Logger
}

func NewDownloader(logger *zap.Logger, save SaveFunc) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Downloader{
		save:   save,
		logger: logger,
	}
}

func (d *Downloader) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

func (d *Downloader) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errMsg
}

// Download runs the producer, resolves the filename and triggers the save.
// Loading is true strictly between invocation and resolution; the error field
// is cleared on entry. Nothing is saved when the producer fails.
func (d *Downloader) Download(ctx context.Context, producer func(context.Context) (*Payload, error), fallbackName string) error {
	d.mu.Lock()
	d.loading = true
	d.errMsg = ""
	d.mu.Unlock()

	payload, err := producer(ctx)
	if err != nil {
		d.fail(Message(err))
		return err
	}

	filename := FilenameFromDisposition(payload.Disposition, fallbackName)

	if err := d.save(payload.Data, filename, payload.ContentType); err != nil {
		d.fail(Message(err))
		return fmt.Errorf("saving %s: %w", filename, err)
	}

	d.mu.Lock()
	d.loading = false
	d.mu.Unlock()

	d.logger.Info("saved download",
		zap.String("filename", filename),
		zap.String("content_type", payload.ContentType),
		zap.Int("bytes", len(payload.Data)),
	)

	return nil
}

func (d *Downloader) fail(msg string) {
	d.mu.Lock()
	d.loading = false
	d.errMsg = msg
	d.mu.Unlock()
}

// FilenameFromDisposition extracts the filename token from a
// Content-Disposition style header value. Quoted and unquoted tokens are
// accepted; an absent or unparseable header yields the fallback.
func FilenameFromDisposition(header, fallback string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return fallback
	}

	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name
		}
	} else if name := scanFilenameToken(header); name != "" {
		return name
	}

	return fallback
}

// scanFilenameToken is the loose fallback for headers mime rejects, e.g. ones
// with unbalanced quotes.
func scanFilenameToken(header string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		value, found := strings.CutPrefix(part, "filename=")
		if !found {
			continue
		}
		return strings.TrimSpace(strings.Trim(value, `"`))
	}
	return ""
}

// DirSaver returns a SaveFunc writing payloads into dir, creating it when
// needed. Filenames are flattened to their base to keep writes inside dir.
func DirSaver(dir string) SaveFunc {
	return func(data []byte, filename, contentType string) error {
		if filename == "" {
			filename = "download"
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating download directory %q: %w", dir, err)
		}

		path := filepath.Join(dir, filepath.Base(filename))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %q: %w", path, err)
		}

		return nil
	}
}
