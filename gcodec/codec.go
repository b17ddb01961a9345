package gcodec

import (
	"io"
)

// StreamEncoder defines the streaming encoding interface.
type StreamEncoder interface {
	Encode(w io.Writer, v interface{}) error
}

// StreamDecoder defines the streaming decoding interface.
type StreamDecoder interface {
	Decode(r io.Reader, v interface{}) error
}

// BytesEncoder defines the byte-slice encoding interface.
type BytesEncoder interface {
	EncodeBytes(v interface{}) ([]byte, error)
}

// BytesDecoder defines the byte-slice decoding interface.
type BytesDecoder interface {
	DecodeBytes(data []byte, v interface{}) error
}

// Codec groups streaming and byte-slice encoding and decoding.
type Codec interface {
	StreamEncoder
	StreamDecoder
	BytesEncoder
	BytesDecoder
}
