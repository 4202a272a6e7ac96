package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"GenreFM/core/classifier"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and validate model artifacts",
}

var modelInspectCmd = &cobra.Command{
	Use:   "inspect [artifact]",
	Short: "Print the metadata and schema of a model artifact",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := artifactPath(args)
		a, size, err := readArtifact(path)
		if err != nil {
			return err
		}
		printArtifact(cmd.OutOrStdout(), path, size, a)
		if err := a.Validate(); err != nil {
			return fmt.Errorf("artifact is invalid: %w", err)
		}
		return nil
	},
}

var modelValidateCmd = &cobra.Command{
	Use:   "validate [artifact]...",
	Short: "Check that artifacts load against the current feature schema and genre map",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			paths = []string{cfg.ModelPath}
		}
		failed := 0
		for _, path := range paths {
			c, err := classifier.Load(path)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK   %s (%s)\n", path, c.Version())
		}
		if failed > 0 {
			return fmt.Errorf("%d artifact(s) failed validation", failed)
		}
		return nil
	},
}

var modelConvertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Re-encode an artifact, picking formats from the file extensions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := readArtifact(args[0])
		if err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}
		format, err := classifier.FormatFromPath(args[1])
		if err != nil {
			return err
		}
		data, err := classifier.EncodeArtifact(a, format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %s)\n", args[1], format, humanize.Bytes(uint64(len(data))))
		return nil
	},
}

func artifactPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.ModelPath
}

func readArtifact(path string) (*classifier.Artifact, int, error) {
	format, err := classifier.FormatFromPath(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	a, err := classifier.DecodeArtifact(data, format)
	if err != nil {
		return nil, 0, err
	}
	return a, len(data), nil
}

func printArtifact(w io.Writer, path string, size int, a *classifier.Artifact) {
	colorize := shouldColorize(w)

	classes := make([]string, 0, len(a.Classes))
	for _, c := range a.Classes {
		label, err := classifier.Label(c)
		if err != nil {
			label = "?"
		}
		classes = append(classes, fmt.Sprintf("%d=%s", c, label))
	}

	rows := [][]string{
		{"File", path},
		{"Size", humanize.Bytes(uint64(size))},
		{"Name", a.Name},
		{"Version", a.Version},
		{"Kind", a.Kind},
		{"Trained", a.Trained},
		{"Schema", a.Schema.Version},
		{"Classes", strings.Join(classes, ", ")},
	}
	switch {
	case a.Forest != nil:
		rows = append(rows, []string{"Trees", strconv.Itoa(len(a.Forest.Trees))})
	case a.Logistic != nil:
		rows = append(rows, []string{"Coefficients", strconv.Itoa(len(a.Logistic.Coef))})
	}
	fmt.Fprintln(w, renderTable([]string{"Artifact", ""}, rows, nil, colorize))

	fields := make([][]string, len(a.Schema.Fields))
	for i, f := range a.Schema.Fields {
		fields[i] = []string{strconv.Itoa(i), f}
	}
	fmt.Fprintln(w, renderTable([]string{"#", "Feature"}, fields, []columnAlignment{alignRight, alignLeft}, colorize))
}

func init() {
	modelCmd.AddCommand(modelInspectCmd, modelValidateCmd, modelConvertCmd)
	rootCmd.AddCommand(modelCmd)
}
