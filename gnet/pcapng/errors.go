package pcapng

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownBlockType = errors.New("pcapng: unknown block type")
	ErrTruncatedInput   = errors.New("pcapng: truncated input")
	ErrDegenerateLength = errors.New("pcapng: block length below minimum")
	ErrInvalidProgram   = errors.New("pcapng: invalid bpf program text")
)

// BlockError 记录解析失败的块在缓冲区中的位置。
type BlockError struct {
	Offset int
	Type   BlockType
	Length uint32
	Err    error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%v (block at offset %d, type %#08x, length %d)", e.Err, e.Offset, uint32(e.Type), e.Length)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}
