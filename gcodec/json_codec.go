package gcodec

import (
	"bytes"
	"encoding/json"
	"io"
)

type JSONCodec struct {
	// Indent, when non-empty, pretty-prints each value with this indent string.
	Indent string
}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (j *JSONCodec) Encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}
	return enc.Encode(v)
}

func (j *JSONCodec) Decode(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

func (j *JSONCodec) EncodeBytes(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := j.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (j *JSONCodec) DecodeBytes(data []byte, v interface{}) error {
	return j.Decode(bytes.NewReader(data), v)
}
