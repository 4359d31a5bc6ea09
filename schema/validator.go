// Package payloadschema validates and decodes the batch files fed to the
// pipeline. Batches may be JSON or YAML; YAML is converted to JSON before
// schema validation so both formats obey the same rules.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"horse.fit/trustbrief/internal/brief"
	"horse.fit/trustbrief/internal/canonical"
	"horse.fit/trustbrief/internal/resolve"
)

//go:embed candidate_batch.schema.json
var candidateBatchSchemaJSON string

//go:embed server_record_batch.schema.json
var serverRecordBatchSchemaJSON string

//go:embed score_snapshot.schema.json
var scoreSnapshotSchemaJSON string

//go:embed server_input_batch.schema.json
var serverInputBatchSchemaJSON string

// Kind names a batch document type.
type Kind string

const (
	KindCandidates   Kind = "candidates"
	KindServers      Kind = "servers"
	KindSnapshot     Kind = "snapshot"
	KindServerInputs Kind = "server-inputs"
)

// Format is the serialization of a batch document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type schemaEntry struct {
	resource string
	source   string

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

var registry = map[Kind]*schemaEntry{
	KindCandidates:   {resource: "candidate_batch.schema.json", source: candidateBatchSchemaJSON},
	KindServers:      {resource: "server_record_batch.schema.json", source: serverRecordBatchSchemaJSON},
	KindSnapshot:     {resource: "score_snapshot.schema.json", source: scoreSnapshotSchemaJSON},
	KindServerInputs: {resource: "server_input_batch.schema.json", source: serverInputBatchSchemaJSON},
}

// ParseKind accepts a batch kind name in any case.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := registry[kind]; !ok {
		return "", fmt.Errorf("unknown batch kind %q (want candidates, servers, snapshot or server-inputs)", raw)
	}
	return kind, nil
}

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Validate checks raw against the schema for kind without decoding it.
func Validate(kind Kind, raw []byte, format Format) error {
	_, err := validated(kind, raw, format)
	return err
}

func DecodeCandidates(raw []byte, format Format) ([]resolve.Candidate, error) {
	var out []resolve.Candidate
	if err := decodeInto(KindCandidates, raw, format, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func DecodeServerRecords(raw []byte, format Format) ([]brief.ServerRecord, error) {
	var out []brief.ServerRecord
	if err := decodeInto(KindServers, raw, format, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func DecodeSnapshot(raw []byte, format Format) (brief.Snapshot, error) {
	out := brief.Snapshot{}
	if err := decodeInto(KindSnapshot, raw, format, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func DecodeServerInputs(raw []byte, format Format) ([]canonical.ServerInput, error) {
	var out []canonical.ServerInput
	if err := decodeInto(KindServerInputs, raw, format, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto(kind Kind, raw []byte, format Format, out any) error {
	normalized, err := validated(kind, raw, format)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("unmarshal %s batch: %w", kind, err)
	}
	return nil
}

// validated decodes raw, validates it and returns its canonical JSON encoding.
func validated(kind Kind, raw []byte, format Format) ([]byte, error) {
	value, err := decodeDocument(raw, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", format, err)
	}

	schema, err := loadSchema(kind)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}
	return normalized, nil
}

func loadSchema(kind Kind) (*jsonschema.Schema, error) {
	entry, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no schema for batch kind %q", kind)
	}

	entry.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(entry.resource, strings.NewReader(entry.source)); err != nil {
			entry.err = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, err := compiler.Compile(entry.resource)
		if err != nil {
			entry.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		entry.compiled = compiled
	})

	if entry.err != nil {
		return nil, entry.err
	}
	if entry.compiled == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return entry.compiled, nil
}

func decodeDocument(raw []byte, format Format) (any, error) {
	if format != FormatYAML {
		return decodeStrictJSON(raw)
	}

	var value any
	if err := yaml.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("payload is empty")
	}
	asJSON, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("convert YAML to JSON: %w", err)
	}
	return decodeStrictJSON(asJSON)
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}
