// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed data/gazetteer.yaml
var defaultData []byte

// Load decodes a gazetteer document and checks its integrity. A document
// that fails the check is returned as an *IntegrityError, which callers
// should treat as fatal.
func Load(r io.Reader) (*Registry, error) {
	var cfg Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return nil, eris.Wrap(err, "gazetteer: decode")
	}

	reg := New(cfg)

	if ok, problems := reg.ValidateIntegrity(); !ok {
		return nil, &IntegrityError{Problems: problems}
	}

	zap.L().Debug("gazetteer loaded",
		zap.String("version", reg.Version()),
		zap.Int("areas", len(reg.Areas())),
		zap.Int("buildings", reg.TotalBuildings()),
	)

	return reg, nil
}

// LoadFile loads a gazetteer from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from the operator's configuration
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: open %s", path)
	}
	defer f.Close()

	return Load(f)
}

// Default loads the gazetteer compiled into the binary.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultData))
}

// Open loads path, or the embedded gazetteer when path is empty.
func Open(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}

	return LoadFile(path)
}
