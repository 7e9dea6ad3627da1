// Package archive сериализует поддерево папок с содержимым файлов
// в один сжатый контейнер (zip, tar или tar.gz).
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"nimbusdrive/internal/domain"
)

type Kind string

const (
	KindZip   Kind = "zip"
	KindTar   Kind = "tar"
	KindTarGz Kind = "tar.gz"
)

// ParseKind проверяет и нормализует запрошенный формат архива.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindZip, KindTar, KindTarGz:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown archive kind %q", domain.ErrValidation, s)
	}
}

// FetchFunc получает содержимое одного файла из хранилища объектов.
type FetchFunc func(ctx context.Context, file domain.File) ([]byte, error)

// writer — общий контракт для zip- и tar-писателей.
type writer interface {
	addFile(path string, data []byte) error
	addDir(path string) error
	close() error
}

// Build обходит дерево в глубину и складывает его в архив в памяти.
// Содержимое файлов запрашивается по одному, чтобы ограничить пиковую
// память на больших деревьях. Любая ошибка чтения прерывает всю сборку.
func Build(ctx context.Context, root *domain.FolderNode, kind Kind, fetch FetchFunc) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}

	var w writer
	switch kind {
	case KindZip:
		w = newZipWriter(buf)
	case KindTar:
		w = newTarWriter(buf, false)
	case KindTarGz:
		w = newTarWriter(buf, true)
	default:
		return nil, fmt.Errorf("%w: unknown archive kind %q", domain.ErrValidation, kind)
	}

	if err := addTree(ctx, w, root, fetch, ""); err != nil {
		return nil, err
	}
	if err := w.close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf, nil
}

func addTree(ctx context.Context, w writer, folder *domain.FolderNode, fetch FetchFunc, parentPath string) error {
	path := folder.Name
	if parentPath != "" {
		path = parentPath + "/" + folder.Name
	}

	// Пустая папка попадает в архив явной записью каталога, иначе форматы,
	// отслеживающие только файлы, её потеряют.
	if len(folder.Files) == 0 && len(folder.Children) == 0 {
		return w.addDir(path + "/")
	}

	for _, file := range folder.Files {
		data, err := fetch(ctx, file)
		if err != nil {
			return fmt.Errorf("failed to fetch file %s: %w", file.ID, err)
		}
		if err := w.addFile(path+"/"+file.Name, data); err != nil {
			return fmt.Errorf("failed to add file %s to archive: %w", file.Name, err)
		}
	}

	for _, child := range folder.Children {
		if err := addTree(ctx, w, child, fetch, path); err != nil {
			return err
		}
	}

	return nil
}

type zipWriter struct {
	zw *zip.Writer
}

func newZipWriter(buf *bytes.Buffer) *zipWriter {
	zw := zip.NewWriter(buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return &zipWriter{zw: zw}
}

func (z *zipWriter) addFile(path string, data []byte) error {
	fw, err := z.zw.Create(path)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

func (z *zipWriter) addDir(path string) error {
	_, err := z.zw.Create(path)
	return err
}

func (z *zipWriter) close() error {
	return z.zw.Close()
}

type tarWriter struct {
	tw *tar.Writer
	gz *gzip.Writer
}

func newTarWriter(buf *bytes.Buffer, compress bool) *tarWriter {
	if !compress {
		return &tarWriter{tw: tar.NewWriter(buf)}
	}
	gz, _ := gzip.NewWriterLevel(buf, gzip.BestCompression)
	return &tarWriter{tw: tar.NewWriter(gz), gz: gz}
}

func (t *tarWriter) addFile(path string, data []byte) error {
	hdr := &tar.Header{
		Name: path,
		Mode: 0644,
		Size: int64(len(data)),
	}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := t.tw.Write(data)
	return err
}

func (t *tarWriter) addDir(path string) error {
	return t.tw.WriteHeader(&tar.Header{
		Name:     path,
		Mode:     0755,
		Typeflag: tar.TypeDir,
	})
}

func (t *tarWriter) close() error {
	if err := t.tw.Close(); err != nil {
		return err
	}
	if t.gz != nil {
		return t.gz.Close()
	}
	return nil
}
