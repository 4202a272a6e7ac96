package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"GenreFM/logger"
)

// FFmpegDecoder decodes any container ffmpeg understands into mono float samples.
type FFmpegDecoder struct {
	ffmpegPath string
	sampleRate int
	maxSeconds float64
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
func NewFFmpegDecoder(ffmpegPath string, sampleRate int, maxSeconds float64) *FFmpegDecoder {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath, sampleRate: sampleRate, maxSeconds: maxSeconds}
}

// Decode spools r to a temporary file, since some containers (mp4, m4a) need a
// seekable input, and decodes it with DecodeFile.
func (p *FFmpegDecoder) Decode(ctx context.Context, r io.Reader) (*Signal, error) {
	tmp, err := os.CreateTemp("", "genrefm-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: spool input: %v", ErrDecode, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	return p.DecodeFile(ctx, tmp.Name())
}

// DecodeFile decodes inputFile to mono 32-bit float PCM at the configured rate.
func (p *FFmpegDecoder) DecodeFile(ctx context.Context, inputFile string) (*Signal, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputFile,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(p.sampleRate),
	}
	if p.maxSeconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(p.maxSeconds, 'f', 3, 64))
	}
	args = append(args, "-f", "f32le", "pipe:1")

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	logger.Debug("Executing FFmpeg decode",
		logger.String("ffmpeg", p.ffmpegPath),
		logger.String("args", strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg execution failed for %s: %v: %s",
			ErrDecode, inputFile, err, strings.TrimSpace(stderr.String()))
	}

	samples, err := parseFloat32LE(out.Bytes())
	if err != nil {
		return nil, err
	}
	return &Signal{Samples: samples, SampleRate: p.sampleRate}, nil
}

func parseFloat32LE(raw []byte) ([]float64, error) {
	n := len(raw) / 4
	if n == 0 {
		return nil, fmt.Errorf("%w: no audio samples decoded", ErrDecode)
	}
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return samples, nil
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Streams []struct {
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// ProbeInfo is what ffprobe reports about the first audio stream.
type ProbeInfo struct {
	Codec      string
	Format     string
	SampleRate int
	Channels   int
	Duration   float64 // seconds
}

// Probe uses ffprobe to describe the first audio stream of inputFile.
func (p *FFmpegDecoder) Probe(ctx context.Context, inputFile string) (*ProbeInfo, error) {
	ffprobePath := strings.Replace(p.ffmpegPath, "ffmpeg", "ffprobe", 1)

	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,sample_rate,channels:format=duration,format_name",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}
	return parseProbe(out.Bytes())
}

func parseProbe(raw []byte) (*ProbeInfo, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(raw, &probeData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if len(probeData.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found in file")
	}

	info := &ProbeInfo{
		Codec:    probeData.Streams[0].CodecName,
		Format:   probeData.Format.FormatName,
		Channels: probeData.Streams[0].Channels,
	}
	if rate, err := strconv.Atoi(probeData.Streams[0].SampleRate); err == nil {
		info.SampleRate = rate
	}
	if probeData.Format.Duration != "" {
		duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
		}
		info.Duration = duration
	}
	return info, nil
}
