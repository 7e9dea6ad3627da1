package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
)

func testTree() *domain.FolderNode {
	return &domain.FolderNode{
		Folder: domain.Folder{Name: "root"},
		Files: []domain.File{
			{ID: uuid.New(), Name: "doc.txt"},
		},
		Children: []*domain.FolderNode{
			{
				Folder: domain.Folder{Name: "sub"},
				Files: []domain.File{
					{ID: uuid.New(), Name: "inner.txt"},
				},
			},
			{
				Folder: domain.Folder{Name: "empty"},
			},
		},
	}
}

func fetchByName(_ context.Context, file domain.File) ([]byte, error) {
	return []byte("content of " + file.Name), nil
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"zip", "tar", "tar.gz"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseKind("rar"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown kind, got %v", err)
	}
}

func TestBuildZip(t *testing.T) {
	buf, err := Build(context.Background(), testTree(), KindZip, fetchByName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}

	entries := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		entries[f.Name] = data
	}

	if got := string(entries["root/doc.txt"]); got != "content of doc.txt" {
		t.Errorf("unexpected root/doc.txt content: %q", got)
	}
	if got := string(entries["root/sub/inner.txt"]); got != "content of inner.txt" {
		t.Errorf("unexpected nested file content: %q", got)
	}
	if _, ok := entries["root/empty/"]; !ok {
		t.Errorf("expected explicit entry for empty folder, got %v", keys(entries))
	}
}

func TestBuildTar(t *testing.T) {
	buf, err := Build(context.Background(), testTree(), KindTar, fetchByName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkTar(t, tar.NewReader(buf))
}

func TestBuildTarGz(t *testing.T) {
	buf, err := Build(context.Background(), testTree(), KindTarGz, fetchByName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gz, err := gzip.NewReader(buf)
	if err != nil {
		t.Fatalf("archive is not gzip-compressed: %v", err)
	}
	defer gz.Close()
	checkTar(t, tar.NewReader(gz))
}

func checkTar(t *testing.T, tr *tar.Reader) {
	t.Helper()

	entries := make(map[string][]byte)
	dirs := make(map[string]bool)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read tar: %v", err)
		}
		if hdr.Typeflag == tar.TypeDir {
			dirs[hdr.Name] = true
			continue
		}
		data, _ := io.ReadAll(tr)
		entries[hdr.Name] = data
	}

	if got := string(entries["root/doc.txt"]); got != "content of doc.txt" {
		t.Errorf("unexpected root/doc.txt content: %q", got)
	}
	if got := string(entries["root/sub/inner.txt"]); got != "content of inner.txt" {
		t.Errorf("unexpected nested file content: %q", got)
	}
	if !dirs["root/empty/"] {
		t.Errorf("expected directory entry for empty folder")
	}
}

func TestBuildPropagatesFetchError(t *testing.T) {
	fetchErr := errors.New("storage down")
	_, err := Build(context.Background(), testTree(), KindZip, func(context.Context, domain.File) ([]byte, error) {
		return nil, fetchErr
	})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error surfaced, got %v", err)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
