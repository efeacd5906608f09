package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// SaveHashFile writes a zstd-compressed snapshot of src to path. The file is
// written next to its final name and renamed into place.
func SaveHashFile(path string, src io.WriterTo, log zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create hash dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create hash file: %w", err)
	}
	defer os.Remove(tmp)

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	raw, err := src.WriteTo(enc)
	if err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("write hash snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush zstd: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install hash file: %w", err)
	}

	log.Info().
		Str("path", path).
		Int64("raw", raw).
		Int64("compressed", info.Size()).
		Msg("hash table saved")
	return nil
}

// LoadHashFile reads a snapshot written by SaveHashFile into dst. A missing
// file yields an error satisfying errors.Is(err, os.ErrNotExist).
func LoadHashFile(path string, dst io.ReaderFrom, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open hash file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dst.ReadFrom(dec)
	if err != nil {
		return fmt.Errorf("read hash snapshot %s: %w", path, err)
	}
	log.Info().Str("path", path).Int64("raw", raw).Msg("hash table loaded")
	return nil
}
