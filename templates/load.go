// Package templates reads wizard templates from YAML or JSON documents and
// checks their structural integrity before they are published.
package templates

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/mbolis/quick-wizard/model"
)

type Format int

const (
	JSON Format = iota
	YAML
)

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// DocumentError lists the schema violations of a template document.
type DocumentError struct {
	Problems []string
}

func (e *DocumentError) Error() string {
	return "invalid template document: " + strings.Join(e.Problems, "; ")
}

// ValidateDocument checks a JSON template document against the embedded
// schema.
func ValidateDocument(doc []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.Wrap(err, "schema validation")
	}
	if result.Valid() {
		return nil
	}
	docErr := &DocumentError{}
	for _, e := range result.Errors() {
		docErr.Problems = append(docErr.Problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return docErr
}

// Load decodes one template. The document is schema-checked first; the
// result is sorted but not linted.
func Load(r io.Reader, format Format) (*model.Template, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if format == YAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "parse yaml")
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, errors.Wrap(err, "convert yaml")
		}
	}

	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	t := &model.Template{}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(t); err != nil {
		return nil, errors.Wrap(err, "decode template")
	}
	if t.Status == "" {
		t.Status = model.Draft
	}
	t.Sort()
	return t, nil
}

func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, true
	case ".json":
		return JSON, true
	}
	return 0, false
}

func LoadFile(path string) (*model.Template, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported template format", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Load(f, format)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return t, nil
}

// LoadDir loads every .yaml, .yml and .json file of dir, in file name order.
func LoadDir(dir string) ([]*model.Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var loaded []*model.Template
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatOf(e.Name()); !ok {
			continue
		}
		t, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, t)
	}
	return loaded, nil
}
