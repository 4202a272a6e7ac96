package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"GenreFM/core/features"
	"GenreFM/core/pipeline"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	classifyJSON     bool
	classifyFeatures bool
	classifyOffline  bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Classify audio files from the command line",
	Long:  `Run each file through the genre pipeline and print the predicted genre.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if classifyOffline {
			cfg.CacheEnabled = false
			cfg.HistoryEnabled = false
			cfg.ArchiveUploads = false
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		results, failed := classifyFiles(ctx, a.pipeline, args, cmd.ErrOrStderr())

		out := cmd.OutOrStdout()
		if classifyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			printResults(out, results, classifyFeatures)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be classified", failed, len(args))
		}
		return nil
	},
}

// classifyFiles runs every path through p, reporting failures to errOut.
func classifyFiles(ctx context.Context, p *pipeline.Pipeline, paths []string, errOut io.Writer) ([]*pipeline.Result, int) {
	var results []*pipeline.Result
	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
			continue
		}
		res, err := p.Classify(ctx, pipeline.Input{Filename: filepath.Base(path), Data: data})
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
			continue
		}
		results = append(results, res)
	}
	return results, failed
}

func printResults(w io.Writer, results []*pipeline.Result, withFeatures bool) {
	if len(results) == 0 {
		return
	}
	colorize := shouldColorize(w)

	headers := []string{"File", "Size", "Duration", "Genre", "Tempo", "Model", "Cached", "Elapsed"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Filename,
			humanize.Bytes(uint64(r.Size)),
			r.Duration.Round(10 * time.Millisecond).String(),
			r.Prediction.Label,
			strconv.FormatFloat(r.Features.Tempo, 'f', 1, 64),
			r.ModelVersion,
			strconv.FormatBool(r.Cached),
			r.Elapsed.Round(time.Millisecond).String(),
		})
	}
	fmt.Fprintln(w, renderTable(headers, rows, aligns, colorize))

	if !withFeatures {
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "\n%s\n", r.Filename)
		fmt.Fprintln(w, renderTable([]string{"Feature", "Value"}, featureRows(r.Features), []columnAlignment{alignLeft, alignRight}, colorize))
	}
}

// featureRows lists the vector in schema order.
func featureRows(v features.FeatureVector) [][]string {
	values := v.Values()
	rows := make([][]string, len(values))
	for i, val := range values {
		rows[i] = []string{features.FieldNames[i], strconv.FormatFloat(val, 'g', 6, 64)}
	}
	return rows
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print results as JSON")
	classifyCmd.Flags().BoolVarP(&classifyFeatures, "features", "f", false, "print the extracted feature vector of each file")
	classifyCmd.Flags().BoolVar(&classifyOffline, "offline", false, "skip the result cache, history and upload archive")
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Example = `  # classify one file
  genrefm classify song.mp3

  # classify several files and show their features
  genrefm classify -f a.wav b.flac

  # machine readable output without touching Redis, MySQL or MinIO
  genrefm classify --offline --json *.wav`
}
