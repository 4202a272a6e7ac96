package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"GenreFM/core/classifier"
	"GenreFM/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Manage model artifacts and archived uploads in MinIO",
	Long:  `List objects in the GenreFM bucket, optionally filtered by prefix, show bucket statistics or delete a prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if minioDelete {
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d objects under %q\n", n, minioPrefix)
			return nil
		}

		objects, stats, err := store.List(ctx, minioPrefix, minioRecursive)
		if err != nil {
			return err
		}
		printObjects(cmd.OutOrStdout(), objects, stats, minioStats)
		return nil
	},
}

var minioUploadModelCmd = &cobra.Command{
	Use:   "upload-model <artifact>",
	Short: "Validate a model artifact and upload it under " + storage.ModelPrefix,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c, err := classifier.Load(path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		store, err := openStore(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		key, err := store.PutModel(ctx, path, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s as %s/%s\n", c.Version(), store.Bucket(), key)
		return nil
	},
}

var minioFetchModelCmd = &cobra.Command{
	Use:   "fetch-model <name> <out>",
	Short: "Download a model artifact from " + storage.ModelPrefix,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		data, err := store.FetchModel(ctx, args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", args[1], humanize.Bytes(uint64(len(data))))
		return nil
	},
}

func openStore(out io.Writer) (*storage.Store, error) {
	fmt.Fprintf(out, "MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
	if err := storage.InitMinio(cfg); err != nil {
		return nil, err
	}
	return storage.NewStore(storage.GetMinioClient(), cfg.MinioBucket), nil
}

func printObjects(w io.Writer, objects []storage.ObjectInfo, stats *storage.BucketStats, withStats bool) {
	colorize := shouldColorize(w)

	rows := make([][]string, 0, len(objects))
	for _, o := range objects {
		rows = append(rows, []string{
			o.Key,
			humanize.Bytes(uint64(o.Size)),
			humanize.Time(o.LastModified),
		})
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no objects found")
	} else {
		fmt.Fprintln(w, renderTable([]string{"Key", "Size", "Modified"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}, colorize))
	}

	if !withStats || stats == nil {
		return
	}
	last := "-"
	if !stats.LastModified.IsZero() {
		last = stats.LastModified.Format(time.RFC3339)
	}
	fmt.Fprintln(w, renderTable([]string{"Objects", "Total size", "Last modified"}, [][]string{{
		strconv.FormatInt(stats.TotalObjects, 10),
		humanize.Bytes(uint64(stats.TotalSize)),
		last,
	}}, []columnAlignment{alignRight, alignRight, alignLeft}, colorize))
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only list keys with this prefix, e.g. "+storage.ModelPrefix)
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print bucket statistics")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", true, "list nested keys")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object under --prefix")
	minioCmd.AddCommand(minioUploadModelCmd, minioFetchModelCmd)
	rootCmd.AddCommand(minioCmd)

	minioCmd.Example = `  # list uploaded model artifacts
  genrefm minio -p models/

  # archived uploads with bucket statistics
  genrefm minio -p uploads/ -s

  # drop the upload archive
  genrefm minio -d -p uploads/

  # publish a model for MODEL_SOURCE=minio
  genrefm minio upload-model data/models/genre_forest.yaml`
}
