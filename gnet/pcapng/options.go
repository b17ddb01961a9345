package pcapng

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

type OptionCode uint16

const (
	OptEndOfOpts OptionCode = 0
	OptComment   OptionCode = 1
	OptName      OptionCode = 2
	OptDescr     OptionCode = 3
	OptIPv4Addr  OptionCode = 4
	OptIPv6Addr  OptionCode = 5
	OptTsResol   OptionCode = 9
	OptOS        OptionCode = 12
)

func (c OptionCode) String() string {
	switch c {
	case OptEndOfOpts:
		return "end of opts"
	case OptComment:
		return "comment"
	case OptName:
		return "name"
	case OptDescr:
		return "descr"
	case OptIPv4Addr:
		return "ipv4 addr"
	case OptIPv6Addr:
		return "ipv6 addr"
	case OptTsResol:
		return "tmstamp res"
	case OptOS:
		return "OS"
	default:
		return fmt.Sprintf("<unknown %d>", uint16(c))
	}
}

type Option struct {
	Code  OptionCode
	Value []byte
}

// ParseOptions 遍历 code/length/value 形式的选项列表，每个值按 4 字节对齐。
// 遇到 end-of-options 或数据耗尽时结束。
func ParseOptions(data []byte) ([]Option, error) {
	var options []Option
	reader := bytes.NewReader(data)
	for reader.Len() >= 4 {
		var code, length uint16
		if err := binary.Read(reader, binary.LittleEndian, &code); err != nil {
			return nil, err
		}
		if err := binary.Read(reader, binary.LittleEndian, &length); err != nil {
			return nil, err
		}

		if OptionCode(code) == OptEndOfOpts {
			break
		}

		value := make([]byte, length)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, ErrTruncatedInput
		}
		options = append(options, Option{
			Code:  OptionCode(code),
			Value: value,
		})

		if err := discard(reader, optionPad(int(length))); err != nil {
			return nil, err
		}
	}
	return options, nil
}

func optionPad(n int) int {
	return (4 - n%4) % 4
}

func discard(r *bytes.Reader, n int) error {
	if n == 0 {
		return nil
	}
	if n > r.Len() {
		return ErrTruncatedInput
	}
	_, err := r.Seek(int64(n), io.SeekCurrent)
	return err
}

func encodeOptions(options []Option) []byte {
	var buf bytes.Buffer
	for _, opt := range options {
		putUint16(&buf, uint16(opt.Code))
		putUint16(&buf, uint16(len(opt.Value)))
		buf.Write(opt.Value)
		if pad := optionPad(len(opt.Value)); pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}
	// end of options
	putUint16(&buf, uint16(OptEndOfOpts))
	putUint16(&buf, 0)
	return buf.Bytes()
}

// decodeTimestampResolution 解析 if_tsresol：最高位为 1 时按 2 的负幂，否则按 10 的负幂。
// 精度细于纳秒时无法表示，返回 false。
func decodeTimestampResolution(v byte) (time.Duration, bool) {
	exp := int(v & 0x7f)
	if v&0x80 != 0 {
		if exp > 30 {
			return 0, false
		}
		res := time.Second >> uint(exp)
		return res, res > 0
	}
	if exp > 9 {
		return 0, false
	}
	res := time.Second
	for i := 0; i < exp; i++ {
		res /= 10
	}
	return res, true
}
