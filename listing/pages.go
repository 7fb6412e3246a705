// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	pageExt   = ".html"
	gzPageExt = ".html.gz"
)

// Combines multiple closers to ensure all resources are released.
type multiReadCloser struct {
	io.ReadCloser
	underlying io.Closer
}

// Implements io.Closer and ensures all resources are properly released.
func (r *multiReadCloser) Close() error {
	return errors.Join(
		r.ReadCloser.Close(),
		r.underlying.Close(),
	)
}

// PageStore is a directory of saved listing pages, one file per listing id,
// either `<id>.html` or gzip compressed `<id>.html.gz`.
type PageStore struct {
	root string
}

// NewPageStore returns a store rooted at dir.
func NewPageStore(dir string) *PageStore {
	return &PageStore{root: dir}
}

// IDs returns the ids of every saved page, sorted.
func (s *PageStore) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, eris.Wrap(err, "listing saved pages")
	}

	ret := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()

		switch {
		case strings.HasSuffix(name, gzPageExt):
			ret = append(ret, strings.TrimSuffix(name, gzPageExt))
		case strings.HasSuffix(name, pageExt):
			ret = append(ret, strings.TrimSuffix(name, pageExt))
		}
	}

	slices.Sort(ret)

	return slices.Compact(ret), nil
}

// Has reports whether a page was saved for id.
func (s *PageStore) Has(id string) bool {
	for _, ext := range []string{gzPageExt, pageExt} {
		if _, err := os.Stat(s.path(id, ext)); err == nil {
			return true
		}
	}

	return false
}

// Save stores a page gzip compressed.
func (s *PageStore) Save(id string, content io.Reader) (err error) {
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return eris.Wrap(err, "setting up page store")
	}

	f, err := os.Create(s.path(id, gzPageExt))
	if err != nil {
		return eris.Wrap(err, "creating page file")
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, eris.Wrap(cerr, "closing file"))
		}
	}()

	gw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return eris.Wrap(err, "creating gzip writer")
	}

	defer func() {
		if cerr := gw.Close(); cerr != nil {
			err = errors.Join(err, eris.Wrap(cerr, "closing gzip writer"))
		}
	}()

	if _, err := io.Copy(gw, content); err != nil {
		return eris.Wrap(err, "writing page file")
	}

	return err
}

// Open returns the saved page for id, decompressed.
func (s *PageStore) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id, gzPageExt))
	if errors.Is(err, os.ErrNotExist) {
		f, err = os.Open(s.path(id, pageExt))
		if err != nil {
			return nil, eris.Wrapf(err, "opening page %s", id)
		}

		return f, nil
	}

	if err != nil {
		return nil, eris.Wrapf(err, "opening page %s", id)
	}

	gr, err := gzip.NewReader(f)
	if err != nil {
		err1 := f.Close()

		return nil, errors.Join(eris.Wrap(err, "creating gzip reader"), err1)
	}

	return &multiReadCloser{gr, f}, nil
}

func (s *PageStore) path(id, ext string) string {
	return filepath.Join(s.root, filepath.Base(id)+ext)
}
