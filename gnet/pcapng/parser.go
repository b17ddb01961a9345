package pcapng

import (
	"encoding/binary"
)

const (
	// 类型 + 总长度
	minBlockLen = 8
	trailerLen  = 4

	idbFixedLen = 12
	epbFixedLen = 28
)

// RawBlock 是单个块的字节区间（含填充），Data 与传入 Blocks 的缓冲区共享内存。
type RawBlock struct {
	Offset int
	Type   BlockType
	Length uint32
	Data   []byte
}

// Body 返回去掉尾部长度字段后的块内容。
func (b RawBlock) Body() []byte {
	return b.Data[:len(b.Data)-trailerLen]
}

// ParseCapture 按文件顺序解码 buf 中的全部块。遇到第一个错误块即整体失败，不返回部分结果。
func ParseCapture(buf []byte) ([]Record, error) {
	records := make([]Record, 0)
	err := ParseCaptureFunc(buf, func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ParseCaptureFunc 按文件顺序对每个解码后的块调用 fn，解码或 fn 出错时立即停止。
func ParseCaptureFunc(buf []byte, fn func(Record) error) error {
	return walkBlocks(buf, func(blk RawBlock) error {
		rec, err := ParseBlock(blk)
		if err != nil {
			return err
		}
		return fn(rec)
	})
}

// Blocks 将 buf 切分为块区间，不做解码。
func Blocks(buf []byte) ([]RawBlock, error) {
	var blocks []RawBlock
	err := walkBlocks(buf, func(blk RawBlock) error {
		blocks = append(blocks, blk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// ParseBlock 解码单个块区间。
func ParseBlock(blk RawBlock) (Record, error) {
	rec, err := decodeBody(blk.Body())
	if err != nil {
		return nil, &BlockError{Offset: blk.Offset, Type: blk.Type, Length: blk.Length, Err: err}
	}
	return rec, nil
}

func walkBlocks(buf []byte, fn func(RawBlock) error) error {
	for begin := 0; begin < len(buf); {
		remaining := len(buf) - begin
		if remaining < minBlockLen {
			return &BlockError{Offset: begin, Err: ErrTruncatedInput}
		}

		tag := BlockType(binary.LittleEndian.Uint32(buf[begin : begin+4]))
		total := binary.LittleEndian.Uint32(buf[begin+4 : begin+8])
		span := paddedLen(total)
		if span < minBlockLen {
			return &BlockError{Offset: begin, Type: tag, Length: total, Err: ErrDegenerateLength}
		}
		if span > uint64(remaining) {
			return &BlockError{Offset: begin, Type: tag, Length: total, Err: ErrTruncatedInput}
		}

		blk := RawBlock{
			Offset: begin,
			Type:   tag,
			Length: total,
			Data:   buf[begin : begin+int(span)],
		}
		if err := fn(blk); err != nil {
			return err
		}
		begin += int(span)
	}
	return nil
}

// paddedLen 将声明长度向上对齐到 4 的倍数，使用 64 位计算以免接近 2^32 时回绕。
func paddedLen(total uint32) uint64 {
	n := uint64(total)
	return n + (4-n%4)%4
}

func decodeBody(body []byte) (Record, error) {
	le := binary.LittleEndian

	switch BlockType(le.Uint32(body[0:4])) {
	case SectionHeaderBlockType:
		return &HeaderRecord{}, nil

	case InterfaceDescriptionBlockType:
		if len(body) < idbFixedLen {
			return nil, ErrTruncatedInput
		}
		return &InterfaceDescriptionRecord{
			LinkType: le.Uint16(body[4:6]),
			SnapLen:  le.Uint32(body[8:12]),
			Options:  NewOpaqueBytes(body[idbFixedLen:]),
		}, nil

	case PacketBlockType:
		return &PacketRecord{}, nil
	case SimplePacketBlockType:
		return &SimplePacketRecord{}, nil
	case NameResolutionBlockType:
		return &NameResolutionRecord{}, nil
	case InterfaceStatisticsBlockType:
		return &InterfaceStatisticsRecord{}, nil

	case EnhancedPacketBlockType:
		if len(body) < epbFixedLen {
			return nil, ErrTruncatedInput
		}
		return &EnhancedPacketRecord{
			InterfaceID: le.Uint32(body[8:12]),
			Timestamp:   le.Uint64(body[12:20]),
			CapturedLen: le.Uint32(body[20:24]),
			OriginalLen: le.Uint32(body[24:28]),
			Content:     NewOpaqueBytes(body[epbFixedLen:]),
		}, nil

	default:
		return nil, ErrUnknownBlockType
	}
}
