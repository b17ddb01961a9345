package pcapng

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// 写出的 SHB 固定为 1.0 版本，section 长度未知。
const (
	sectionMajor   uint16 = 1
	sectionMinor   uint16 = 0
	sectionUnknown uint64 = 0xFFFFFFFFFFFFFFFF
)

type WriterOption func(*writerConfig) error

type writerConfig struct {
	defaultRes time.Duration
	bufferSize int
}

// Writer 按 ParseCapture 读取的布局写出小端序块。
type Writer struct {
	w             io.Writer
	buf           *bufio.Writer
	defaultRes    time.Duration
	snapLens      map[uint32]uint32 // interface id -> snaplen
	nextInterface uint32
}

func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{
		defaultRes: time.Microsecond,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	writer := &Writer{
		w:          w,
		defaultRes: cfg.defaultRes,
		snapLens:   make(map[uint32]uint32),
	}

	if cfg.bufferSize > 0 {
		writer.buf = bufio.NewWriterSize(w, cfg.bufferSize)
		writer.w = writer.buf
	}
	return writer, nil
}

// WriteSectionHeader 开始新的 section，并清空已添加的接口。
func (w *Writer) WriteSectionHeader(opts ...Option) error {
	var body bytes.Buffer
	putUint32(&body, ByteOrderMagic)
	putUint16(&body, sectionMajor)
	putUint16(&body, sectionMinor)
	putUint64(&body, sectionUnknown)
	body.Write(encodeOptions(opts))

	w.snapLens = make(map[uint32]uint32)
	w.nextInterface = 0
	return w.WriteRawBlock(SectionHeaderBlockType, body.Bytes())
}

// AddInterface 写出 IDB 并返回接口 id。未显式给出 if_tsresol 时按默认精度补齐。
func (w *Writer) AddInterface(linkType uint16, snapLen uint32, opts ...Option) (uint32, error) {
	if w.defaultRes != time.Microsecond && !hasOption(opts, OptTsResol) {
		value, err := encodeTimestampResolution(w.defaultRes)
		if err != nil {
			return 0, err
		}
		opts = append(opts, Option{Code: OptTsResol, Value: []byte{value}})
	}

	var body bytes.Buffer
	putUint16(&body, linkType)
	putUint16(&body, 0) // reserved
	putUint32(&body, snapLen)
	body.Write(encodeOptions(opts))
	if err := w.WriteRawBlock(InterfaceDescriptionBlockType, body.Bytes()); err != nil {
		return 0, err
	}

	id := w.nextInterface
	w.nextInterface++
	w.snapLens[id] = snapLen
	return id, nil
}

// WritePacket 以默认精度写出 EPB，超过接口 snaplen 的部分被截断；ts 为零值时取当前时间。
func (w *Writer) WritePacket(interfaceID uint32, data []byte, ts time.Time) error {
	snapLen, ok := w.snapLens[interfaceID]
	if !ok {
		return fmt.Errorf("pcapng: unknown interface %d", interfaceID)
	}

	if ts.IsZero() {
		ts = time.Now()
	}
	ticks, err := encodeTimestamp(ts.UTC(), w.defaultRes)
	if err != nil {
		return err
	}

	origLen := uint32(len(data))
	capturedLen := origLen
	if snapLen > 0 && capturedLen > snapLen {
		capturedLen = snapLen
	}
	return w.WriteEnhancedPacket(interfaceID, ticks, data[:capturedLen], origLen)
}

// WriteEnhancedPacket 写出 EPB，ticks 按先高 32 位后低 32 位拆分。
func (w *Writer) WriteEnhancedPacket(interfaceID uint32, ticks uint64, data []byte, originalLen uint32) error {
	var body bytes.Buffer
	putUint32(&body, interfaceID)
	putUint32(&body, uint32(ticks>>32))
	putUint32(&body, uint32(ticks))
	putUint32(&body, uint32(len(data)))
	putUint32(&body, originalLen)
	body.Write(data)
	if pad := optionPad(len(data)); pad > 0 {
		body.Write(make([]byte, pad))
	}
	return w.WriteRawBlock(EnhancedPacketBlockType, body.Bytes())
}

// WriteRawBlock 为 body 加上类型与首尾长度字段。声明长度不做对齐，补零位于尾部长度字段之前。
func (w *Writer) WriteRawBlock(tag BlockType, body []byte) error {
	totalLength := uint32(minBlockLen + len(body) + trailerLen)

	var buf bytes.Buffer
	putUint32(&buf, uint32(tag))
	putUint32(&buf, totalLength)
	buf.Write(body)
	if pad := paddedLen(totalLength) - uint64(totalLength); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	putUint32(&buf, totalLength)

	_, err := w.w.Write(buf.Bytes())
	return err
}

// WriteBlock 原样写出一个块。
func (w *Writer) WriteBlock(blk RawBlock) error {
	_, err := w.w.Write(blk.Data)
	return err
}

func (w *Writer) Flush() error {
	if w.buf != nil {
		return w.buf.Flush()
	}
	return nil
}

func hasOption(opts []Option, code OptionCode) bool {
	for _, opt := range opts {
		if opt.Code == code {
			return true
		}
	}
	return false
}

func encodeTimestampResolution(d time.Duration) (byte, error) {
	switch d {
	case time.Nanosecond:
		return 9, nil
	case time.Microsecond:
		return 6, nil
	default:
		return 0, fmt.Errorf("pcapng: unsupported timestamp resolution %s", d)
	}
}

func encodeTimestamp(ts time.Time, resolution time.Duration) (uint64, error) {
	switch resolution {
	case time.Nanosecond:
		return uint64(ts.Unix())*1_000_000_000 + uint64(ts.Nanosecond()), nil
	case time.Microsecond:
		return uint64(ts.Unix())*1_000_000 + uint64(ts.Nanosecond()/1000), nil
	default:
		return 0, fmt.Errorf("pcapng: unsupported timestamp resolution %s", resolution)
	}
}

func putUint16(buf *bytes.Buffer, value uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], value)
	buf.Write(tmp[:])
}

func putUint32(buf *bytes.Buffer, value uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], value)
	buf.Write(tmp[:])
}

func putUint64(buf *bytes.Buffer, value uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], value)
	buf.Write(tmp[:])
}

// WithDefaultTimestampResolution 设置 WritePacket 使用的时间精度，仅支持微秒与纳秒。
func WithDefaultTimestampResolution(res time.Duration) WriterOption {
	return func(cfg *writerConfig) error {
		switch res {
		case time.Microsecond, time.Nanosecond:
			cfg.defaultRes = res
			return nil
		default:
			return fmt.Errorf("pcapng: unsupported default timestamp resolution %s", res)
		}
	}
}

// WithBuffer 启用带缓冲写入以减少系统调用。
func WithBuffer(size int) WriterOption {
	return func(cfg *writerConfig) error {
		if size <= 0 {
			return fmt.Errorf("pcapng: buffer size must be positive")
		}
		cfg.bufferSize = size
		return nil
	}
}
