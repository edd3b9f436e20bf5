package manifest

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EncodeYAML serializes doc to its YAML wire form.
func EncodeYAML(doc *Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "manifest: encode yaml")
	}
	return out, nil
}

// DecodeYAML parses a Document from its YAML wire form.
func DecodeYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, pkgerrors.Wrap(err, "manifest: decode yaml")
	}
	if err := docValidator.Struct(&doc); err != nil {
		return nil, pkgerrors.Wrap(err, "manifest: validate document")
	}
	return &doc, nil
}

// EncodeYAMLGzip serializes doc to gzip-compressed YAML, for realms
// large enough that export bandwidth matters.
func EncodeYAMLGzip(doc *Document) ([]byte, error) {
	raw, err := EncodeYAML(doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, pkgerrors.Wrap(err, "manifest: gzip write")
	}
	if err := zw.Close(); err != nil {
		return nil, pkgerrors.Wrap(err, "manifest: gzip close")
	}
	return buf.Bytes(), nil
}

// DecodeYAMLGzip is the inverse of EncodeYAMLGzip.
func DecodeYAMLGzip(data []byte) (*Document, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "manifest: gzip reader")
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "manifest: gzip read")
	}
	return DecodeYAML(raw)
}
