package pcapng

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/bpf"
)

// FilterRecords 保留全部非 EPB 记录以及 BPF 程序接受的 EPB。
// 旧式 Packet 与 SimplePacket 块不携带可过滤的载荷，始终保留。
func FilterRecords(records []Record, prog []bpf.Instruction) ([]Record, error) {
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, err
	}

	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		keep, err := matchRecord(vm, rec)
		if err != nil {
			return nil, err
		}
		if keep {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}

// FilterCopy 按 BPF 过滤 EPB，其余块（含 NRB、ISB、旧式 Packet 与 SimplePacket）原样写入 w，
// 返回保留的包数。整个 buf 先完成解码与匹配，任何块出错时不向 w 写入任何内容。
func FilterCopy(buf []byte, w *Writer, prog []bpf.Instruction) (int, error) {
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return 0, err
	}

	blocks, err := Blocks(buf)
	if err != nil {
		return 0, err
	}

	kept := make([]RawBlock, 0, len(blocks))
	count := 0
	for _, blk := range blocks {
		rec, err := ParseBlock(blk)
		if err != nil {
			return 0, err
		}
		keep, err := matchRecord(vm, rec)
		if err != nil {
			return 0, err
		}
		if !keep {
			continue
		}
		kept = append(kept, blk)
		if rec.BlockType() == EnhancedPacketBlockType {
			count++
		}
	}

	for _, blk := range kept {
		if err := w.WriteBlock(blk); err != nil {
			return 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return count, nil
}

func matchRecord(vm *bpf.VM, rec Record) (bool, error) {
	epb, ok := rec.(*EnhancedPacketRecord)
	if !ok {
		return true, nil
	}
	verdict, err := vm.Run(epb.Data())
	if err != nil {
		return false, err
	}
	return verdict != 0, nil
}

// ParseRawInstructions 解析 `tcpdump -ddd` 输出：首行为指令条数，其后每行为 "code jt jf k"。
// 逗号也可作为行分隔符。
func ParseRawInstructions(text string) ([]bpf.Instruction, error) {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ',' || r == '\r'
	})
	var fields [][]string
	for _, line := range lines {
		if f := strings.Fields(line); len(f) > 0 {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 || len(fields[0]) != 1 {
		return nil, fmt.Errorf("%w: missing instruction count", ErrInvalidProgram)
	}

	count, err := strconv.Atoi(fields[0][0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	if count != len(fields)-1 {
		return nil, fmt.Errorf("%w: count %d but %d instructions", ErrInvalidProgram, count, len(fields)-1)
	}

	prog := make([]bpf.Instruction, 0, count)
	for i, f := range fields[1:] {
		if len(f) != 4 {
			return nil, fmt.Errorf("%w: instruction %d has %d fields", ErrInvalidProgram, i, len(f))
		}
		var nums [4]uint64
		for j, s := range f {
			n, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: instruction %d: %v", ErrInvalidProgram, i, err)
			}
			nums[j] = n
		}
		raw := bpf.RawInstruction{
			Op: uint16(nums[0]),
			Jt: uint8(nums[1]),
			Jf: uint8(nums[2]),
			K:  uint32(nums[3]),
		}
		prog = append(prog, raw.Disassemble())
	}
	return prog, nil
}

// ReadRawInstructions 从 r 读取全部内容后调用 ParseRawInstructions。
func ReadRawInstructions(r io.Reader) ([]bpf.Instruction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseRawInstructions(string(data))
}
