package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

type savedFile struct {
	data        []byte
	filename    string
	contentType string
}

func recordingSaver(saved *[]savedFile) SaveFunc {
	return func(data []byte, filename, contentType string) error {
		*saved = append(*saved, savedFile{data: data, filename: filename, contentType: contentType})
		return nil
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		fallback string
		expect   string
	}{
		{
			name:     "quoted filename",
			header:   `attachment; filename="resume_john.pdf"`,
			fallback: "fallback.bin",
			expect:   "resume_john.pdf",
		},
		{
			name:     "unquoted filename",
			header:   `attachment; filename=resume.pdf`,
			fallback: "fallback.bin",
			expect:   "resume.pdf",
		},
		{
			name:     "absent header",
			header:   "",
			fallback: "fallback.bin",
			expect:   "fallback.bin",
		},
		{
			name:     "no filename parameter",
			header:   "inline",
			fallback: "fallback.bin",
			expect:   "fallback.bin",
		},
		{
			name:     "unbalanced quotes recovered by loose scan",
			header:   `attachment; filename="resume.pdf`,
			fallback: "fallback.bin",
			expect:   "resume.pdf",
		},
		{
			name:     "garbage header",
			header:   `;;;===`,
			fallback: "fallback.bin",
			expect:   "fallback.bin",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FilenameFromDisposition(tt.header, tt.fallback); got != tt.expect {
				t.Fatalf("FilenameFromDisposition(%q) = %q, want %q", tt.header, got, tt.expect)
			}
		})
	}
}

func TestDownloadSavesWithResolvedFilename(t *testing.T) {
	t.Parallel()

	var saved []savedFile
	d := NewDownloader(zap.NewNop(), recordingSaver(&saved))

	err := d.Download(context.Background(), func(context.Context) (*Payload, error) {
		return &Payload{
			Data:        []byte("pdf-bytes"),
			ContentType: "application/pdf",
			Disposition: `attachment; filename="resume_john.pdf"`,
		}, nil
	}, "fallback.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(saved) != 1 {
		t.Fatalf("expected exactly one save, got %d", len(saved))
	}
	if saved[0].filename != "resume_john.pdf" {
		t.Fatalf("unexpected filename: %q", saved[0].filename)
	}
	if saved[0].contentType != "application/pdf" {
		t.Fatalf("unexpected content type: %q", saved[0].contentType)
	}
	if string(saved[0].data) != "pdf-bytes" {
		t.Fatalf("unexpected payload: %q", saved[0].data)
	}
	if d.Loading() {
		t.Fatal("loading must be false after resolution")
	}
	if d.Err() != "" {
		t.Fatalf("unexpected stored error: %q", d.Err())
	}
}

func TestDownloadFallsBackToSuppliedFilename(t *testing.T) {
	t.Parallel()

	var saved []savedFile
	d := NewDownloader(zap.NewNop(), recordingSaver(&saved))

	err := d.Download(context.Background(), func(context.Context) (*Payload, error) {
		return &Payload{Data: []byte("x"), ContentType: "application/octet-stream"}, nil
	}, "resume_fallback.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved[0].filename != "resume_fallback.bin" {
		t.Fatalf("expected fallback filename, got %q", saved[0].filename)
	}
}

func TestDownloadFailureSavesNothingAndRethrows(t *testing.T) {
	t.Parallel()

	var saved []savedFile
	d := NewDownloader(zap.NewNop(), recordingSaver(&saved))

	wantErr := &detailErr{detail: "Resume not found"}
	err := d.Download(context.Background(), func(context.Context) (*Payload, error) {
		return nil, wantErr
	}, "fallback.bin")

	if !errors.Is(err, wantErr) {
		t.Fatalf("the producer failure must be returned to the caller, got %v", err)
	}
	if len(saved) != 0 {
		t.Fatal("nothing may be saved on failure")
	}
	if d.Err() != "Resume not found" {
		t.Fatalf("stored message must prefer the structured detail, got %q", d.Err())
	}
	if d.Loading() {
		t.Fatal("loading must be false after failure")
	}
}

func TestDownloadClearsErrorOnNextInvocation(t *testing.T) {
	t.Parallel()

	var saved []savedFile
	d := NewDownloader(zap.NewNop(), recordingSaver(&saved))

	_ = d.Download(context.Background(), func(context.Context) (*Payload, error) {
		return nil, errors.New("boom")
	}, "f.bin")
	if d.Err() == "" {
		t.Fatal("expected stored error after failure")
	}

	err := d.Download(context.Background(), func(context.Context) (*Payload, error) {
		return &Payload{Data: []byte("ok")}, nil
	}, "f.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Err() != "" {
		t.Fatalf("error must be cleared at the start of each invocation, got %q", d.Err())
	}
}

func TestDownloadSaveFailureIsSurfaced(t *testing.T) {
	t.Parallel()

	d := NewDownloader(zap.NewNop(), func([]byte, string, string) error {
		return errors.New("disk full")
	})

	err := d.Download(context.Background(), func(context.Context) (*Payload, error) {
		return &Payload{Data: []byte("x")}, nil
	}, "f.bin")

	if err == nil {
		t.Fatal("save failure must be returned")
	}
	if d.Err() != "disk full" {
		t.Fatalf("unexpected stored error: %q", d.Err())
	}
}

func TestDirSaverWritesInsideDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	save := DirSaver(dir)

	if err := save([]byte("content"), "../escape.txt", "text/plain"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "escape.txt"))
	if err != nil {
		t.Fatalf("expected file flattened into the directory: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("unexpected content: %q", data)
	}
}
