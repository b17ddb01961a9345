package gcompress

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// GzipUtil gzip压缩解压工具类
type GzipUtil struct {
	CompressionLevel int // 压缩级别，默认gzip.DefaultCompression
}

// NewGzipUtil 创建gzip工具实例
func NewGzipUtil() *GzipUtil {
	return &GzipUtil{
		CompressionLevel: gzip.DefaultCompression,
	}
}

// WithCompressionLevel 设置压缩级别
func (g *GzipUtil) WithCompressionLevel(level int) *GzipUtil {
	g.CompressionLevel = level
	return g
}

// Compress 压缩字节数据
func (g *GzipUtil) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, g.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("gcompress: gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("gcompress: gzip compress: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gcompress: gzip close: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress 解压字节数据
func (g *GzipUtil) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gcompress: gzip reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("gcompress: gzip decompress: %w", err)
	}

	return buf.Bytes(), nil
}

// CompressFile 压缩文件
func (g *GzipUtil) CompressFile(sourcePath, targetPath string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("gcompress: open source: %w", err)
	}
	defer sourceFile.Close()

	targetFile, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("gcompress: create target: %w", err)
	}
	defer targetFile.Close()

	writer, err := gzip.NewWriterLevel(targetFile, g.CompressionLevel)
	if err != nil {
		return fmt.Errorf("gcompress: gzip writer: %w", err)
	}

	if _, err := io.Copy(writer, sourceFile); err != nil {
		_ = writer.Close()
		return fmt.Errorf("gcompress: gzip compress %s: %w", sourcePath, err)
	}
	return writer.Close()
}

// IsGzipped 检查数据是否是gzip格式
func IsGzipped(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}
