package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Output / rendering constants — canonical 16:9 landscape at 30fps.
// Every background segment is normalized to this before muxing.
const (
	outputWidth  = 1280
	outputHeight = 720
	videoFPS     = 30
)

// FFmpeg shells out to the ffmpeg/ffprobe binaries. Every invocation runs
// under a bounded timeout; on expiry the subprocess is killed and the call
// surfaces an EncodeError, so no generation can block on a hung encoder.
type FFmpeg struct {
	tempDir string
	timeout time.Duration
}

func NewFFmpeg(tempDir string, timeout time.Duration) (*FFmpeg, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &FFmpeg{tempDir: tempDir, timeout: timeout}, nil
}

// Duration returns the playable duration of a media file in seconds.
// Safe to call concurrently on distinct files; no side effects.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe %s: %v", ErrUnreadableMedia, path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable duration for %s: %v", ErrUnreadableMedia, path, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%w: %s has no duration metadata", ErrUnreadableMedia, path)
	}

	return duration, nil
}

// SynthesizeColor renders a solid-color segment of exactly the given
// duration at the canonical resolution.
func (f *FFmpeg) SynthesizeColor(ctx context.Context, hex string, duration float64, outPath string) error {
	input := fmt.Sprintf("color=c=0x%s:s=%dx%d:d=%s", hex, outputWidth, outputHeight, formatSeconds(duration))

	args := []string{
		"-f", "lavfi",
		"-i", input,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(videoFPS),
		"-y",
		outPath,
	}

	return f.run(ctx, "synthesize_color", args)
}

// StillToVideo holds a still image as a static segment of the given
// duration. The image is expected to already be at the canonical
// resolution; the scale filter is a safety net for odd dimensions.
func (f *FFmpeg) StillToVideo(ctx context.Context, imagePath string, duration float64, outPath string) error {
	args := []string{
		"-loop", "1",
		"-t", formatSeconds(duration),
		"-i", imagePath,
		"-vf", canonicalScaleFilter(),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(videoFPS),
		"-y",
		outPath,
	}

	return f.run(ctx, "still_to_video", args)
}

// TrimVideo takes the leading `duration` slice of the source and normalizes
// it to the canonical resolution and frame rate. The source audio track is
// dropped; the mux stage maps audio from the caller's track only.
func (f *FFmpeg) TrimVideo(ctx context.Context, inPath string, duration float64, outPath string) error {
	args := []string{
		"-i", inPath,
		"-t", formatSeconds(duration),
		"-vf", canonicalScaleFilter(),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(videoFPS),
		"-an",
		"-y",
		outPath,
	}

	return f.run(ctx, "trim_video", args)
}

// LoopVideo plays the source `loops` times, then trims to exactly
// `duration`. ffmpeg's -stream_loop counts extra repeats, so loops-1 is
// passed to get `loops` total play-throughs.
func (f *FFmpeg) LoopVideo(ctx context.Context, inPath string, loops int, duration float64, outPath string) error {
	args := []string{
		"-stream_loop", strconv.Itoa(loops - 1),
		"-i", inPath,
		"-t", formatSeconds(duration),
		"-vf", canonicalScaleFilter(),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(videoFPS),
		"-an",
		"-y",
		outPath,
	}

	return f.run(ctx, "loop_video", args)
}

// Mux combines a normalized background segment with the audio track: video
// stream copied, audio re-encoded to AAC, output truncated to the shorter
// input. The encode targets a .part path and only a complete file is
// renamed into place, so a half-written deliverable is never observable.
func (f *FFmpeg) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	partPath := outPath + ".part"

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-f", "mp4",
		"-y",
		partPath,
	}

	if err := f.run(ctx, "mux", args); err != nil {
		os.Remove(partPath)
		return err
	}

	if err := os.Rename(partPath, outPath); err != nil {
		os.Remove(partPath)
		return &EncodeError{Op: "mux", Err: fmt.Errorf("failed to finalize output: %w", err)}
	}

	return nil
}

// CreateTempFile returns a path for an intermediate file inside the
// service's temp directory.
func (f *FFmpeg) CreateTempFile(filename string) string {
	return filepath.Join(f.tempDir, filename)
}

func (f *FFmpeg) run(ctx context.Context, op string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &EncodeError{Op: op, Err: fmt.Errorf("timed out after %s", f.timeout)}
		}
		return &EncodeError{Op: op, Err: fmt.Errorf("%v: %s", err, truncate(stderr.String(), 400))}
	}

	return nil
}

// canonicalScaleFilter crops-to-cover arbitrary input into the canonical
// frame: scale up to cover, then center-crop.
func canonicalScaleFilter() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		outputWidth, outputHeight, outputWidth, outputHeight,
	)
}

// formatSeconds renders a duration for ffmpeg arguments with millisecond
// precision.
func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

// truncate limits a string to maxLen characters for error output
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
