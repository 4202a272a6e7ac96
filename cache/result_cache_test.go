package cache

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"GenreFM/core/classifier"
	"GenreFM/core/features"
	"GenreFM/core/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		ID:       "3f1c",
		Filename: "a440.wav",
		SHA256:   "ab12",
		Size:     220544,
		Duration: 5 * time.Second,
		Prediction: classifier.Prediction{
			Index:  1,
			Label:  "Classical",
			Scores: map[string]float64{"Dance": 0, "Classical": 2.0 / 3, "Rock": 1.0 / 3},
		},
		Features:     features.FeatureVector{Tempo: 117.45, Key: 117.45, SpectralCentroid: 441.2, MFCC: -21.7},
		BeatTimes:    []float64{0.51, 1.02},
		ModelVersion: "genre-forest@1.0.0",
		Elapsed:      180 * time.Millisecond,
	}
}

func TestResultEncoding(t *testing.T) {
	want := sampleResult()
	data, err := encodeResult(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeResult(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decoded result differs:\n got %+v\nwant %+v", got, want)
	}

	if _, err := decodeResult([]byte{0xc1}); err == nil {
		t.Fatal("expected error for invalid msgpack")
	}
}

// TestResultCacheRedis runs against a live server when GENREFM_TEST_REDIS is set,
// e.g. GENREFM_TEST_REDIS=127.0.0.1:6379.
func TestResultCacheRedis(t *testing.T) {
	addr := os.Getenv("GENREFM_TEST_REDIS")
	if addr == "" {
		t.Skip("GENREFM_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()

	ctx := context.Background()
	c := NewResultCache(client, time.Minute)
	key := pipeline.CacheKey("deadbeef", "test@0")

	if res, err := c.Get(ctx, key); err != nil || res != nil {
		t.Fatalf("expected miss, got %v, %v", res, err)
	}
	if err := c.Set(ctx, key, sampleResult()); err != nil {
		t.Fatalf("set: %v", err)
	}
	res, err := c.Get(ctx, key)
	if err != nil || res == nil {
		t.Fatalf("expected hit, got %v, %v", res, err)
	}
	if res.Prediction.Label != "Classical" {
		t.Fatalf("label %q", res.Prediction.Label)
	}
	if n, err := c.Purge(ctx); err != nil || n < 1 {
		t.Fatalf("purge removed %d keys: %v", n, err)
	}
}
