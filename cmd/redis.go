package cmd

import (
	"context"
	"fmt"
	"time"

	"GenreFM/cache"
	"GenreFM/logger"

	"github.com/spf13/cobra"
)

var redisPurge bool

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection used by the result cache",
	Long:  `Connect to Redis, run a set/get/delete round trip and optionally purge cached classification results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		defer func() {
			if err := cache.CloseRedis(); err != nil {
				logger.Warn("close Redis", logger.ErrorField(err))
			}
		}()
		fmt.Fprintln(out, "connected")

		if err := cache.TestRedis(); err != nil {
			return fmt.Errorf("redis round trip failed: %w", err)
		}
		fmt.Fprintln(out, "set/get/delete round trip ok")

		if redisPurge {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			n, err := cache.NewResultCache(cache.RedisClient, cfg.CacheTTL).Purge(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "purged %d cached results\n", n)
		}
		return nil
	},
}

func init() {
	redisCmd.Flags().BoolVar(&redisPurge, "purge", false, "delete every cached classification result")
	rootCmd.AddCommand(redisCmd)
}
