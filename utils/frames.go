package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// ErrSourceUnavailable marks a video segment that cannot be opened or holds
// no frames. Callers treat this as a degraded batch, not a failure.
var ErrSourceUnavailable = errors.New("video source unavailable")

const (
	frameWidth   = 1280
	frameHeight  = 720
	frameQuality = 70
)

// FrameSampler extracts evenly-spaced stills from recorded video segments
// and compresses them to bound transport size. It shells out to ffmpeg and
// ffprobe the same way capture does.
type FrameSampler struct {
	maxFrames   int
	ffmpegPath  string
	ffprobePath string
}

func NewFrameSampler(maxFrames int) *FrameSampler {
	return &FrameSampler{
		maxFrames:   maxFrames,
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
	}
}

// ExtractFrames returns up to maxFrames JPEG payloads sampled at evenly
// spaced frame indices, downscaled and re-encoded. Sources that cannot be
// opened or report zero frames yield ErrSourceUnavailable and no frames.
func (s *FrameSampler) ExtractFrames(ctx context.Context, videoPath string) ([][]byte, error) {
	total, err := s.probeFrameCount(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, videoPath, err)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: %s reports no frames", ErrSourceUnavailable, videoPath)
	}

	indices := sampleIndices(total, s.maxFrames)

	tmpDir, err := os.MkdirTemp("", "dayloom-frames-*")
	if err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-v", "error",
		"-i", videoPath,
		"-vf", selectExpr(indices),
		"-vsync", "0",
		"-q:v", "2",
		"-f", "image2",
		filepath.Join(tmpDir, "frame_%04d.jpg"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrSourceUnavailable, err, strings.TrimSpace(string(out)))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			zap.L().Warn("Failed to read extracted frame", zap.String("frame", name), zap.Error(err))
			continue
		}
		compressed, err := compressFrame(data)
		if err != nil {
			zap.L().Warn("Failed to compress frame", zap.String("frame", name), zap.Error(err))
			continue
		}
		frames = append(frames, compressed)
	}
	return frames, nil
}

// probeFrameCount asks ffprobe for the stream's frame count, falling back to
// duration times frame rate for containers that do not record nb_frames.
func (s *FrameSampler) probeFrameCount(ctx context.Context, videoPath string) (int, error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,duration,avg_frame_rate",
		"-of", "json",
		videoPath)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	var probe struct {
		Streams []struct {
			NbFrames     string `json:"nb_frames"`
			Duration     string `json:"duration"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return 0, fmt.Errorf("no video stream")
	}

	stream := probe.Streams[0]
	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
		return n, nil
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("no usable frame count or duration")
	}
	fps := parseFrameRate(stream.AvgFrameRate)
	if fps <= 0 {
		return 0, fmt.Errorf("no usable frame rate")
	}
	return int(duration * fps), nil
}

// sampleIndices picks k evenly spaced frame indices as round(i*total/k),
// clamped into range and deduplicated. Short sources yield fewer indices.
func sampleIndices(total, k int) []int {
	if total <= 0 || k <= 0 {
		return nil
	}

	indices := make([]int, 0, k)
	last := -1
	for i := 0; i < k; i++ {
		idx := int(math.Round(float64(i) * float64(total) / float64(k)))
		if idx >= total {
			idx = total - 1
		}
		if idx == last {
			continue
		}
		indices = append(indices, idx)
		last = idx
	}
	return indices
}

func selectExpr(indices []int) string {
	terms := make([]string, len(indices))
	for i, idx := range indices {
		terms[i] = fmt.Sprintf(`eq(n\,%d)`, idx)
	}
	return "select=" + strings.Join(terms, "+")
}

// compressFrame rescales a decoded frame to the fixed transport resolution
// and re-encodes it at the fixed JPEG quality.
func compressFrame(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: frameQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	if !found {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
