package pcapng

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"
)

type BlockType uint32

const (
	SectionHeaderBlockType        BlockType = 0x0A0D0D0A
	InterfaceDescriptionBlockType BlockType = 0x00000001
	PacketBlockType               BlockType = 0x00000002
	SimplePacketBlockType         BlockType = 0x00000003
	NameResolutionBlockType       BlockType = 0x00000004
	InterfaceStatisticsBlockType  BlockType = 0x00000005
	EnhancedPacketBlockType       BlockType = 0x00000006
)

// ByteOrderMagic 是 SHB 中的字节序标记，按小端序写出。
const ByteOrderMagic uint32 = 0x1A2B3C4D

func (t BlockType) String() string {
	switch t {
	case SectionHeaderBlockType:
		return "Header"
	case InterfaceDescriptionBlockType:
		return "InterfaceDescription"
	case PacketBlockType:
		return "Packet"
	case SimplePacketBlockType:
		return "SimplePacket"
	case NameResolutionBlockType:
		return "NameResolution"
	case InterfaceStatisticsBlockType:
		return "InterfaceStatistics"
	case EnhancedPacketBlockType:
		return "EnhancedPacket"
	default:
		return fmt.Sprintf("BlockType(%#08x)", uint32(t))
	}
}

// Record 是一个已解码的块，实现类型仅限本包。
type Record interface {
	BlockType() BlockType
	isRecord()
}

type HeaderRecord struct{}

type InterfaceDescriptionRecord struct {
	LinkType uint16      `json:"link_type" yaml:"link_type"`
	SnapLen  uint32      `json:"snap_len" yaml:"snap_len"`
	Options  OpaqueBytes `json:"options" yaml:"options"`
}

type PacketRecord struct{}

type SimplePacketRecord struct{}

type NameResolutionRecord struct{}

type InterfaceStatisticsRecord struct{}

type EnhancedPacketRecord struct {
	InterfaceID uint32 `json:"interface_id" yaml:"interface_id"`
	// Timestamp 为块内偏移 12 处按小端序读取的 64 位原始值。
	Timestamp   uint64      `json:"timestamp" yaml:"timestamp"`
	CapturedLen uint32      `json:"captured_len" yaml:"captured_len"`
	OriginalLen uint32      `json:"original_len" yaml:"original_len"`
	Content     OpaqueBytes `json:"content" yaml:"content"`
}

func (*HeaderRecord) BlockType() BlockType               { return SectionHeaderBlockType }
func (*InterfaceDescriptionRecord) BlockType() BlockType { return InterfaceDescriptionBlockType }
func (*PacketRecord) BlockType() BlockType               { return PacketBlockType }
func (*SimplePacketRecord) BlockType() BlockType         { return SimplePacketBlockType }
func (*NameResolutionRecord) BlockType() BlockType       { return NameResolutionBlockType }
func (*InterfaceStatisticsRecord) BlockType() BlockType  { return InterfaceStatisticsBlockType }
func (*EnhancedPacketRecord) BlockType() BlockType       { return EnhancedPacketBlockType }

func (*HeaderRecord) isRecord()               {}
func (*InterfaceDescriptionRecord) isRecord() {}
func (*PacketRecord) isRecord()               {}
func (*SimplePacketRecord) isRecord()         {}
func (*NameResolutionRecord) isRecord()       {}
func (*InterfaceStatisticsRecord) isRecord()  {}
func (*EnhancedPacketRecord) isRecord()       {}

// OptionList 解析接口选项。Options 前 4 字节为磁盘上的 snaplen 字段，其后才是选项列表。
func (r *InterfaceDescriptionRecord) OptionList() ([]Option, error) {
	if r.Options.Len() <= 4 {
		return nil, nil
	}
	return ParseOptions(r.Options.b[4:])
}

// TimestampResolution 返回 if_tsresol 声明的时间精度，缺失或无法解析时为微秒。
func (r *InterfaceDescriptionRecord) TimestampResolution() time.Duration {
	opts, err := r.OptionList()
	if err != nil {
		return time.Microsecond
	}
	for _, opt := range opts {
		if opt.Code == OptTsResol && len(opt.Value) > 0 {
			if res, ok := decodeTimestampResolution(opt.Value[0]); ok {
				return res
			}
		}
	}
	return time.Microsecond
}

// Ticks 返回捕获时钟值：高 32 位取自偏移 12，低 32 位取自偏移 16，与 pcapng 写出顺序一致。
func (r *EnhancedPacketRecord) Ticks() uint64 {
	return uint64(uint32(r.Timestamp))<<32 | r.Timestamp>>32
}

// MaxUnixSeconds 对应 9999-12-31T23:59:59Z，超出后 Time 报告越界。
const MaxUnixSeconds = 253402300799

// Time 将 Ticks 换算为 UTC 时间，resolution 为单个 tick 的时长，零值表示微秒。
// 换算结果晚于 MaxUnixSeconds 时返回零值与 false。
func (r *EnhancedPacketRecord) Time(resolution time.Duration) (time.Time, bool) {
	if resolution <= 0 {
		resolution = time.Microsecond
	}
	ticks := r.Ticks()
	if resolution >= time.Second {
		unit := uint64(resolution / time.Second)
		if ticks > MaxUnixSeconds/unit {
			return time.Time{}, false
		}
		return time.Unix(int64(ticks*unit), 0).UTC(), true
	}
	perSecond := uint64(time.Second / resolution)
	seconds := ticks / perSecond
	if seconds > MaxUnixSeconds {
		return time.Time{}, false
	}
	nanos := int64(ticks%perSecond) * int64(resolution)
	return time.Unix(int64(seconds), nanos).UTC(), true
}

// Truncated 报告 CapturedLen 是否超过 Content 的实际长度。
func (r *EnhancedPacketRecord) Truncated() bool {
	return int(r.CapturedLen) > r.Content.Len()
}

// Data 返回 Content 的前 CapturedLen 字节，截断时返回全部 Content。
func (r *EnhancedPacketRecord) Data() []byte {
	if r.Truncated() {
		return r.Content.Bytes()
	}
	return append([]byte(nil), r.Content.b[:r.CapturedLen]...)
}

// OpaqueBytes 是未解码区域的只读副本。
type OpaqueBytes struct {
	b []byte
}

func NewOpaqueBytes(data []byte) OpaqueBytes {
	return OpaqueBytes{b: append([]byte(nil), data...)}
}

// Bytes 返回区域内容的副本。
func (o OpaqueBytes) Bytes() []byte {
	return append([]byte(nil), o.b...)
}

func (o OpaqueBytes) Len() int {
	return len(o.b)
}

func (o OpaqueBytes) Equal(data []byte) bool {
	return bytes.Equal(o.b, data)
}

func (o OpaqueBytes) String() string {
	return hex.EncodeToString(o.b)
}

func (o OpaqueBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(o.b)), nil
}

func (o OpaqueBytes) MarshalYAML() (interface{}, error) {
	return hex.EncodeToString(o.b), nil
}
