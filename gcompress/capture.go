package gcompress

import (
	"fmt"
	"os"
)

// Format 压缩格式
type Format int

const (
	None Format = iota
	Gzip
	Zstd
)

func (f Format) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect 根据魔数判断压缩格式
func Detect(data []byte) Format {
	switch {
	case IsGzipped(data):
		return Gzip
	case IsZstd(data):
		return Zstd
	default:
		return None
	}
}

// Decompress 按魔数自动解压；未压缩的数据原样返回。
func Decompress(data []byte) ([]byte, error) {
	switch Detect(data) {
	case Gzip:
		return NewGzipUtil().Decompress(data)
	case Zstd:
		return NewZstdUtil().Decompress(data)
	default:
		return data, nil
	}
}

// Compress 按指定格式压缩
func Compress(format Format, data []byte) ([]byte, error) {
	switch format {
	case Gzip:
		return NewGzipUtil().Compress(data)
	case Zstd:
		return NewZstdUtil().Compress(data)
	case None:
		return data, nil
	default:
		return nil, fmt.Errorf("gcompress: unsupported format %d", int(format))
	}
}

// ReadCapture 读取整个文件并透明解压 gzip / zstd。
func ReadCapture(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
