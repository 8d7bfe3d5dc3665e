// Package persistence implements the file-backed stores behind the
// domain's ContactStore, MessageStore, and SessionCache interfaces, plus
// an encrypted-at-rest store for the local static keypair (spec §6).
package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// readJSON best-effort reads path into out; a missing file is not an
// error and leaves out untouched.
func readJSON(path string, out any) error {
	b, err := readFile(path)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return json.Unmarshal(b, out)
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// writeJSON marshals v and writes it via a temp file then rename, so a
// crash mid-write never leaves a half-written store on disk.
func writeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, b, mode)
}

func writeFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// jsonFile is a mutex-guarded on-disk JSON document. Every *FileStore in
// this package embeds one instead of separately pairing a path with a
// sync.Mutex and re-deriving the same load-then-write shape, since all
// three stores (contacts, messages, session cache) are single-process,
// single-writer documents read-modify-written under one lock (spec §6).
type jsonFile struct {
	path string
	mu   sync.Mutex
}

func newJSONFile(dir, name string) *jsonFile {
	return &jsonFile{path: filepath.Join(dir, name)}
}

// view locks the file for a read-only decode into dst.
func (f *jsonFile) view(dst any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return readJSON(f.path, dst)
}

// update locks the file, decodes the current document into dst, runs fn
// to mutate it, and writes dst back — the compound read-modify-write
// every store mutation needs.
func (f *jsonFile) update(dst any, mode os.FileMode, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := readJSON(f.path, dst); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return writeJSON(f.path, dst, mode)
}
