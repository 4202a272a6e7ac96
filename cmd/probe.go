package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"GenreFM/core/audio"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "Describe audio files with ffprobe before classifying them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dec := audio.NewFFmpegDecoder(cfg.FFmpegPath, audio.DefaultSampleRate, cfg.MaxAudioSeconds)

		infos := make(map[string]*audio.ProbeInfo, len(args))
		failed := 0
		for _, path := range args {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			info, err := dec.Probe(ctx, path)
			cancel()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			infos[path] = info
		}
		printProbes(cmd.OutOrStdout(), args, infos)

		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be probed", failed, len(args))
		}
		return nil
	},
}

func printProbes(w io.Writer, paths []string, infos map[string]*audio.ProbeInfo) {
	var rows [][]string
	for _, path := range paths {
		info, ok := infos[path]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			path,
			info.Format,
			info.Codec,
			strconv.Itoa(info.SampleRate),
			strconv.Itoa(info.Channels),
			time.Duration(info.Duration * float64(time.Second)).Round(10 * time.Millisecond).String(),
		})
	}
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(w, renderTable(
		[]string{"File", "Format", "Codec", "Rate", "Channels", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		shouldColorize(w),
	))
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
