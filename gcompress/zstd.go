package gcompress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// ZstdUtil zstd压缩解压工具类
type ZstdUtil struct {
	Level zstd.EncoderLevel
}

// NewZstdUtil 创建zstd工具实例
func NewZstdUtil() *ZstdUtil {
	return &ZstdUtil{Level: zstd.SpeedDefault}
}

// Compress 压缩字节数据
func (z *ZstdUtil) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.Level))
	if err != nil {
		return nil, fmt.Errorf("gcompress: zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Decompress 解压字节数据
func (z *ZstdUtil) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("gcompress: zstd reader: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("gcompress: zstd decompress: %w", err)
	}
	return out, nil
}

// IsZstd 检查数据是否是zstd帧
func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}
