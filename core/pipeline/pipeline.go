// Package pipeline wires decoding, feature extraction and classification into
// a single request-scoped call.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"GenreFM/core/audio"
	"GenreFM/core/classifier"
	"GenreFM/core/features"
	"GenreFM/logger"
	"GenreFM/model"
)

// ErrPipeline wraps every classification failure at the pipeline boundary.
var ErrPipeline = errors.New("classification failed")

// Input is one audio upload.
type Input struct {
	Filename string
	Data     []byte
}

// Result is the outcome of one classification.
type Result struct {
	ID           string                 `json:"id"`
	Filename     string                 `json:"filename"`
	SHA256       string                 `json:"sha256"`
	Size         int64                  `json:"size"`
	Duration     time.Duration          `json:"duration"`
	Prediction   classifier.Prediction  `json:"prediction"`
	Features     features.FeatureVector `json:"features"`
	BeatTimes    []float64              `json:"beatTimes,omitempty"`
	ModelVersion string                 `json:"modelVersion"`
	Cached       bool                   `json:"cached"`
	Elapsed      time.Duration          `json:"elapsed"`
	ArchiveKey   string                 `json:"archiveKey,omitempty"`
}

// ModelSource yields the classifier for the next request. *classifier.Holder
// implements it.
type ModelSource interface {
	Current() *classifier.Classifier
}

// ResultCache stores results keyed by content hash and model version.
// A miss is (nil, nil).
type ResultCache interface {
	Get(ctx context.Context, key string) (*Result, error)
	Set(ctx context.Context, key string, r *Result) error
}

// HistoryRecorder persists classification records.
type HistoryRecorder interface {
	Create(ctx context.Context, c *model.Classification) error
}

// Archiver keeps a copy of the raw upload.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte) error
}

// Options configures the optional collaborators. Nil members are skipped.
type Options struct {
	Workers int
	Cache   ResultCache
	History HistoryRecorder
	Archive Archiver
}

// Pipeline classifies audio uploads. It is safe for concurrent use; at most
// Options.Workers classifications run at once.
type Pipeline struct {
	decoder   audio.Decoder
	extractor *features.Extractor
	models    ModelSource
	cache     ResultCache
	history   HistoryRecorder
	archive   Archiver
	slots     chan struct{}
}

// New creates a pipeline.
func New(decoder audio.Decoder, extractor *features.Extractor, models ModelSource, opts Options) *Pipeline {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		decoder:   decoder,
		extractor: extractor,
		models:    models,
		cache:     opts.Cache,
		history:   opts.History,
		archive:   opts.Archive,
		slots:     make(chan struct{}, workers),
	}
}

// Workers returns the size of the worker-slot pool.
func (p *Pipeline) Workers() int {
	return cap(p.slots)
}

// Model returns the classifier currently in use.
func (p *Pipeline) Model() *classifier.Classifier {
	return p.models.Current()
}

// CacheKey derives the result cache key for content hash sum under a model version.
func CacheKey(sum, modelVersion string) string {
	return "genrefm:result:" + modelVersion + ":" + sum
}

// Classify runs decode → extract → predict → label for one upload. Any
// failure is terminal and wraps ErrPipeline together with its cause.
func (p *Pipeline) Classify(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	if len(in.Data) == 0 {
		return nil, fail(fmt.Errorf("%w: empty upload", audio.ErrDecode))
	}

	clf := p.models.Current()
	if clf == nil {
		return nil, fail(fmt.Errorf("%w: no model loaded", classifier.ErrPrediction))
	}

	digest := sha256.Sum256(in.Data)
	sum := hex.EncodeToString(digest[:])
	key := CacheKey(sum, clf.Version())

	if res := p.lookup(ctx, key); res != nil {
		res.ID = model.NewClassificationID()
		res.Filename = in.Filename
		res.Cached = true
		if res.ArchiveKey == "" {
			p.archiveUpload(ctx, res, in)
		}
		res.Elapsed = time.Since(start)
		p.record(ctx, res)
		return res, nil
	}

	if err := p.acquire(ctx); err != nil {
		return nil, fail(err)
	}
	res, err := p.run(ctx, in, clf)
	p.release()
	if err != nil {
		logger.Warn("classification failed",
			logger.String("filename", in.Filename),
			logger.Int("size", len(in.Data)),
			logger.ErrorField(err))
		return nil, fail(err)
	}

	res.ID = model.NewClassificationID()
	res.Filename = in.Filename
	res.SHA256 = sum
	res.Size = int64(len(in.Data))
	res.ModelVersion = clf.Version()
	res.Elapsed = time.Since(start)

	p.archiveUpload(ctx, res, in)
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, res); err != nil {
			logger.Warn("result cache store failed", logger.String("key", key), logger.ErrorField(err))
		}
	}
	p.record(ctx, res)

	logger.Info("classified upload",
		logger.String("id", res.ID),
		logger.String("filename", in.Filename),
		logger.String("label", res.Prediction.Label),
		logger.String("model", res.ModelVersion),
		logger.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in Input, clf *classifier.Classifier) (*Result, error) {
	sig, err := p.decoder.Decode(ctx, bytes.NewReader(in.Data))
	if err != nil {
		return nil, err
	}
	// models are trained on features computed at this rate
	if sig.SampleRate != audio.DefaultSampleRate {
		return nil, fmt.Errorf("%w: decoder produced %d Hz, models expect %d Hz", audio.ErrDecode, sig.SampleRate, audio.DefaultSampleRate)
	}
	analysis, err := p.extractor.Extract(ctx, sig)
	if err != nil {
		return nil, err
	}
	pred, err := clf.Classify(analysis.Vector)
	if err != nil {
		return nil, err
	}
	return &Result{
		Duration:   sig.Duration(),
		Prediction: pred,
		Features:   analysis.Vector,
		BeatTimes:  analysis.BeatTimes,
	}, nil
}

func (p *Pipeline) lookup(ctx context.Context, key string) *Result {
	if p.cache == nil {
		return nil
	}
	res, err := p.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("result cache lookup failed", logger.String("key", key), logger.ErrorField(err))
		return nil
	}
	return res
}

// record stores a history row. Failures are logged and do not fail the request.
func (p *Pipeline) record(ctx context.Context, res *Result) {
	if p.history == nil {
		return
	}
	row := &model.Classification{
		ID:           res.ID,
		Filename:     res.Filename,
		SHA256:       res.SHA256,
		SizeBytes:    res.Size,
		DurationSec:  res.Duration.Seconds(),
		ClassIndex:   res.Prediction.Index,
		Label:        res.Prediction.Label,
		Features:     model.FeatureMap(res.Features.Named()),
		ModelVersion: res.ModelVersion,
		Cached:       res.Cached,
		ElapsedMs:    res.Elapsed.Milliseconds(),
		ArchiveKey:   res.ArchiveKey,
	}
	if err := p.history.Create(ctx, row); err != nil {
		logger.Warn("history record failed", logger.String("id", res.ID), logger.ErrorField(err))
	}
}

func (p *Pipeline) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) release() {
	<-p.slots
}

// archiveUpload stores the raw upload and sets res.ArchiveKey on success.
// The archive runs before the cache store so cached entries carry the key.
func (p *Pipeline) archiveUpload(ctx context.Context, res *Result, in Input) {
	if p.archive == nil {
		return
	}
	key := ArchiveKey(res.SHA256, in.Filename)
	if err := p.archive.Archive(ctx, key, in.Data); err != nil {
		logger.Warn("upload archive failed", logger.String("key", key), logger.ErrorField(err))
		return
	}
	res.ArchiveKey = key
}

// ArchiveKey is the object name an upload is archived under.
func ArchiveKey(sum, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("uploads/%s/%s%s", sum[:2], sum, ext)
}

func fail(err error) error {
	return fmt.Errorf("%w: %w", ErrPipeline, err)
}
