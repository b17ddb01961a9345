package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sofiworker/ngdump/gcodec"
	"github.com/sofiworker/ngdump/gnet/hexview"
	"github.com/sofiworker/ngdump/gnet/pcapng"
)

// envelope 为 json/yaml 输出附带记录的类型名。
type envelope struct {
	Type   string        `json:"type" yaml:"type"`
	Record pcapng.Record `json:"record" yaml:"record"`
}

type printer struct {
	w       io.Writer
	codec   gcodec.Codec
	dumper  hexview.Dumper
	content bool
	options bool
}

func newPrinter(w io.Writer, s *Settings) (*printer, error) {
	p := &printer{
		w:       w,
		dumper:  hexview.Dumper{Width: s.Hexdump.Width},
		content: s.Output.Content,
		options: s.Output.Options,
	}
	if s.Output.Format != "text" {
		codec, err := gcodec.ForFormat(s.Output.Format)
		if err != nil {
			return nil, err
		}
		p.codec = codec
	}
	return p, nil
}

func (p *printer) Print(records []pcapng.Record) error {
	if p.codec != nil {
		out := make([]envelope, 0, len(records))
		for _, rec := range records {
			out = append(out, envelope{Type: rec.BlockType().String(), Record: rec})
		}
		return p.codec.Encode(p.w, out)
	}

	var resolutions []time.Duration
	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "#%d %s", i, rec.BlockType())
		switch r := rec.(type) {
		case *pcapng.HeaderRecord:
			resolutions = resolutions[:0]
			b.WriteByte('\n')
		case *pcapng.InterfaceDescriptionRecord:
			resolutions = append(resolutions, r.TimestampResolution())
			fmt.Fprintf(&b, " link_type=%d snap_len=%d options=%dB\n", r.LinkType, r.SnapLen, r.Options.Len())
			if p.options {
				p.writeOptions(&b, r)
			}
			if p.content {
				b.WriteString(p.dumper.Dump(r.Options.Bytes()))
			}
		case *pcapng.EnhancedPacketRecord:
			res := time.Microsecond
			if int(r.InterfaceID) < len(resolutions) {
				res = resolutions[r.InterfaceID]
			}
			fmt.Fprintf(&b, " if=%d ts=%s caplen=%d origlen=%d",
				r.InterfaceID, formatTime(r, res), r.CapturedLen, r.OriginalLen)
			if r.Truncated() {
				b.WriteString(" (truncated content)")
			}
			b.WriteByte('\n')
			if p.content {
				b.WriteString(p.dumper.Dump(r.Content.Bytes()))
			}
		default:
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *printer) writeOptions(b *strings.Builder, r *pcapng.InterfaceDescriptionRecord) {
	opts, err := r.OptionList()
	if err != nil {
		fmt.Fprintf(b, "    options: %v\n", err)
		return
	}
	for _, opt := range opts {
		fmt.Fprintf(b, "    %s: %s\n", opt.Code, formatOptionValue(opt))
	}
}

func formatOptionValue(opt pcapng.Option) string {
	switch opt.Code {
	case pcapng.OptComment, pcapng.OptName, pcapng.OptDescr, pcapng.OptOS:
		return fmt.Sprintf("%q", opt.Value)
	default:
		return fmt.Sprintf("%x", opt.Value)
	}
}

// formatTime 渲染 EPB 时间戳，越界时输出原始 tick 值。
func formatTime(r *pcapng.EnhancedPacketRecord, res time.Duration) string {
	ts, ok := r.Time(res)
	if !ok {
		return fmt.Sprintf("out-of-range(ticks=%d)", r.Ticks())
	}
	return ts.Format(time.RFC3339Nano)
}
