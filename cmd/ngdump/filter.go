package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sofiworker/ngdump/gcompress"
	"github.com/sofiworker/ngdump/glog"
	"github.com/sofiworker/ngdump/gnet/pcapng"
)

var errNoFilter = errors.New("filter: --filter is required")

func newFilterCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <in> <out>",
		Short: "Write the enhanced packets accepted by a BPF program to a new capture",
		Long: `filter copies every block of <in> other than enhanced packets unchanged
(header, interface, name resolution, statistics, legacy packet and simple packet
blocks) and keeps only the enhanced packets accepted by the --filter program.
Legacy and simple packet blocks are never filtered. Nothing is left at <out>
when <in> fails to decode.

Examples:
  tcpdump -ddd tcp port 443 > https.bpf
  ngdump filter --filter https.bpf in.pcapng.gz out.pcapng`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.filterFile == "" {
				return errNoFilter
			}
			n, err := runFilter(args[0], args[1], opts.filterFile)
			if err != nil {
				return err
			}
			glog.InfoContext(cmd.Context(), "capture filtered", "in", args[0], "out", args[1], "packets", n)
			return nil
		},
	}
}

func runFilter(in, out, filterFile string) (int, error) {
	prog, err := loadFilter(filterFile)
	if err != nil {
		return 0, err
	}
	data, err := gcompress.ReadCapture(in)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	w, err := pcapng.NewWriter(f, pcapng.WithBuffer(64*1024))
	if err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return 0, err
	}
	n, err := pcapng.FilterCopy(data, w, prog)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rerr := os.Remove(out); rerr != nil {
			glog.Warn("remove partial output failed", "out", out, "error", rerr)
		}
		return 0, fmt.Errorf("%s: %w", in, err)
	}
	return n, nil
}
