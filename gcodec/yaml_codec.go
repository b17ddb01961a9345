package gcodec

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"
)

type YAMLCodec struct {
	Indent int
}

func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{Indent: 2}
}

// Encode writes v as a single YAML document.
func (y *YAMLCodec) Encode(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	if y.Indent > 0 {
		enc.SetIndent(y.Indent)
	}
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (y *YAMLCodec) Decode(r io.Reader, v interface{}) error {
	return yaml.NewDecoder(r).Decode(v)
}

func (y *YAMLCodec) EncodeBytes(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := y.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (y *YAMLCodec) DecodeBytes(data []byte, v interface{}) error {
	return y.Decode(bytes.NewReader(data), v)
}
