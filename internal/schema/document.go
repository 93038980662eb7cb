// Package schema decodes remote schema documents and turns them into the
// filtered table and column descriptors the browser works with.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/koustreak/schemascope/internal/errs"
)

// Definition is one table entry of a schema document.
type Definition struct {
	Name       string
	Properties []string // column names in source order
}

// Document is the raw schema: tables and their columns, in the order the
// remote endpoint listed them. All other metadata is dropped on decode.
type Document struct {
	Definitions []Definition
}

// Decode reads a document of the form
//
//	{"definitions": {"<table>": {"properties": {"<column>": ...}}}}
//
// preserving key order. A missing or null "definitions" member yields an
// empty document. Any other shape is ErrKindMalformedDocument.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	d := &documentDecoder{dec: dec}

	doc, err := d.document()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindMalformedDocument, "invalid schema document", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errs.New(errs.ErrKindMalformedDocument, "invalid schema document: trailing data")
	}
	return doc, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(b []byte) (*Document, error) {
	return Decode(bytes.NewReader(b))
}

type documentDecoder struct {
	dec *json.Decoder
}

func (d *documentDecoder) document() (*Document, error) {
	if err := d.expectObject(); err != nil {
		return nil, err
	}

	doc := &Document{}
	for d.dec.More() {
		key, err := d.key()
		if err != nil {
			return nil, err
		}
		if key != "definitions" {
			if err := d.skip(); err != nil {
				return nil, err
			}
			continue
		}
		defs, err := d.definitions()
		if err != nil {
			return nil, fmt.Errorf("definitions: %w", err)
		}
		doc.Definitions = defs
	}
	return doc, d.closeObject()
}

func (d *documentDecoder) definitions() ([]Definition, error) {
	isNull, err := d.objectOrNull()
	if err != nil || isNull {
		return nil, err
	}

	var defs []Definition
	seen := make(map[string]int)
	for d.dec.More() {
		name, err := d.key()
		if err != nil {
			return nil, err
		}
		props, err := d.definition()
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		// Duplicate keys keep their first position and the last value,
		// matching encoding/json's last-wins semantics.
		if i, dup := seen[name]; dup {
			defs[i].Properties = props
			continue
		}
		seen[name] = len(defs)
		defs = append(defs, Definition{Name: name, Properties: props})
	}
	return defs, d.closeObject()
}

func (d *documentDecoder) definition() ([]string, error) {
	if err := d.expectObject(); err != nil {
		return nil, err
	}

	var props []string
	for d.dec.More() {
		key, err := d.key()
		if err != nil {
			return nil, err
		}
		if key != "properties" {
			if err := d.skip(); err != nil {
				return nil, err
			}
			continue
		}
		props, err = d.properties()
		if err != nil {
			return nil, fmt.Errorf("properties: %w", err)
		}
	}
	return props, d.closeObject()
}

func (d *documentDecoder) properties() ([]string, error) {
	isNull, err := d.objectOrNull()
	if err != nil || isNull {
		return nil, err
	}

	var cols []string
	seen := make(map[string]struct{})
	for d.dec.More() {
		col, err := d.key()
		if err != nil {
			return nil, err
		}
		if err := d.skip(); err != nil {
			return nil, err
		}
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		cols = append(cols, col)
	}
	return cols, d.closeObject()
}

func (d *documentDecoder) expectObject() error {
	tok, err := d.dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	return nil
}

func (d *documentDecoder) objectOrNull() (isNull bool, err error) {
	tok, err := d.dec.Token()
	if err != nil {
		return false, err
	}
	if tok == nil {
		return true, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return false, fmt.Errorf("expected object, got %v", tok)
	}
	return false, nil
}

func (d *documentDecoder) closeObject() error {
	tok, err := d.dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '}' {
		return fmt.Errorf("expected end of object, got %v", tok)
	}
	return nil
}

func (d *documentDecoder) key() (string, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected key, got %v", tok)
	}
	return key, nil
}

func (d *documentDecoder) skip() error {
	var raw json.RawMessage
	return d.dec.Decode(&raw)
}
