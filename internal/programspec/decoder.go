package programspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoding selects the document syntax.
type Encoding string

const (
	EncodingYAML Encoding = "yaml"
	EncodingJSON Encoding = "json"
)

var ErrEmptyDocument = errors.New("empty program document")

// EncodingFor picks the encoding from a file extension.
func EncodingFor(path string) (Encoding, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EncodingYAML, true
	case ".json":
		return EncodingJSON, true
	default:
		return "", false
	}
}

// Decode parses data as enc. Unknown fields and trailing documents are
// rejected.
func Decode(data []byte, enc Encoding) (Spec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Spec{}, ErrEmptyDocument
	}
	switch enc {
	case EncodingJSON:
		return decodeJSON(data)
	case EncodingYAML:
		return decodeYAML(data)
	default:
		return Spec{}, fmt.Errorf("unsupported encoding %q", enc)
	}
}

func decodeJSON(data []byte) (Spec, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var spec Spec
	if err := decoder.Decode(&spec); err != nil {
		return Spec{}, fmt.Errorf("failed to decode JSON document: %w", err)
	}
	var extra interface{}
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return Spec{}, errors.New("unexpected trailing JSON content")
	}
	return spec, nil
}

func decodeYAML(data []byte) (Spec, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var spec Spec
	if err := decoder.Decode(&spec); err != nil {
		return Spec{}, fmt.Errorf("failed to decode YAML document: %w", err)
	}
	var extra interface{}
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return Spec{}, errors.New("unexpected trailing YAML document")
	}
	return spec, nil
}
