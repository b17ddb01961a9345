package gcompress

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestGzipUtil(t *testing.T) {
	gz := NewGzipUtil().WithCompressionLevel(9)
	data := []byte("hello world hello world hello world")

	compressed, err := gz.Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) == 0 {
		t.Fatal("compressed data is empty")
	}
	if !IsGzipped(compressed) {
		t.Fatal("IsGzipped returned false for gzipped data")
	}

	decompressed, err := gz.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(data, decompressed) {
		t.Fatalf("expected %s, got %s", data, decompressed)
	}

	if _, err := gz.Decompress([]byte("invalid")); err == nil {
		t.Error("expected error decompressing invalid data")
	}
	if IsGzipped([]byte{0x1f}) {
		t.Error("IsGzipped true for short data")
	}
}

func TestGzipFile(t *testing.T) {
	data := bytes.Repeat([]byte{0x0a, 0x0d, 0x0d, 0x0a}, 64)
	tmpDir := t.TempDir()
	srcFile := filepath.Join(tmpDir, "capture.pcapng")
	dstFile := filepath.Join(tmpDir, "capture.pcapng.gz")

	if err := os.WriteFile(srcFile, data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewGzipUtil().CompressFile(srcFile, dstFile); err != nil {
		t.Fatalf("CompressFile failed: %v", err)
	}

	got, err := ReadCapture(dstFile)
	if err != nil {
		t.Fatalf("ReadCapture failed: %v", err)
	}
	if !bytes.Equal(data, got) {
		t.Fatal("file content mismatch")
	}

	if err := NewGzipUtil().CompressFile(filepath.Join(tmpDir, "missing"), dstFile); err == nil {
		t.Error("expected error for missing source")
	}
}
