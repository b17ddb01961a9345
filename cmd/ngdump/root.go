package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/net/bpf"

	"github.com/sofiworker/ngdump/gcompress"
	"github.com/sofiworker/ngdump/glog"
	"github.com/sofiworker/ngdump/gnet/pcapng"
	"github.com/sofiworker/ngdump/gotel"
)

type rootOptions struct {
	configFile string
	filterFile string
	settings   *Settings
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "ngdump [flags] <file>",
		Short: "Decode the blocks of a pcapng capture file",
		Long: `ngdump reads a whole pcapng capture, optionally gzip or zstd compressed,
and prints one record per block in file order.

Examples:
  ngdump capture.pcapng
  ngdump --content --options capture.pcapng.gz
  ngdump -o json --filter tcp.bpf capture.pcapng`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, opts.configFile, nil)
			if err != nil {
				return err
			}
			opts.settings = s
			return s.configureLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "settings file (default ngdump.yaml in . or $HOME/.config/ngdump)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.StringP("output", "o", "text", "output format: text, json, yaml")
	pf.Bool("content", false, "hex-dump packet content and interface options")
	pf.Bool("options", false, "decode interface description options")
	pf.StringVar(&opts.filterFile, "filter", "", "BPF program in tcpdump -ddd format applied to enhanced packets")

	cmd.AddCommand(newWatchCmd(opts), newFilterCmd(opts))
	return cmd
}

// decodeFile 读取并解码 path，给出 --filter 时再按 BPF 过滤。
func decodeFile(ctx context.Context, path string, opts *rootOptions) (records []pcapng.Record, err error) {
	ctx, span := gotel.Start(ctx, "ngdump.decode", "file", path)
	defer func() { gotel.End(span, err) }()

	data, err := gcompress.ReadCapture(path)
	if err != nil {
		return nil, err
	}
	records, err = pcapng.ParseCapture(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	span.SetAttributes(gotel.Attributes("bytes", len(data), "records", len(records))...)
	gotel.Count(ctx, "ngdump.records", int64(len(records)), "file", path)
	glog.DebugContext(ctx, "capture decoded", "file", path, "bytes", len(data), "records", len(records))

	if opts.filterFile == "" {
		return records, nil
	}
	prog, err := loadFilter(opts.filterFile)
	if err != nil {
		return nil, err
	}
	kept, err := pcapng.FilterRecords(records, prog)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", opts.filterFile, err)
	}
	gotel.Count(ctx, "ngdump.records.dropped", int64(len(records)-len(kept)), "file", path)
	glog.DebugContext(ctx, "records filtered", "kept", len(kept), "dropped", len(records)-len(kept))
	return kept, nil
}

func loadFilter(path string) ([]bpf.Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	prog, err := pcapng.ReadRawInstructions(f)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", path, err)
	}
	return prog, nil
}

func runDump(ctx context.Context, w io.Writer, path string, opts *rootOptions) error {
	records, err := decodeFile(ctx, path, opts)
	if err != nil {
		return err
	}
	p, err := newPrinter(w, opts.settings)
	if err != nil {
		return err
	}
	return p.Print(records)
}
