package media

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lenavs/backend/internal/models"
)

// fallbackColor is used when a caller-supplied color string cannot be
// resolved. Black, matching the original product behavior.
const fallbackColor = "000000"

var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// Background describes the caller-selected background, immutable once
// constructed from the request.
type Background struct {
	Type       models.BackgroundType
	SourcePath string // image and video variants
	ColorHex   string // color variant
}

// Prober inspects a media file and returns its playable duration.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Encoder is the external media-processing engine the resolver drives.
// All outputs are at the canonical resolution and frame rate.
type Encoder interface {
	SynthesizeColor(ctx context.Context, hex string, duration float64, outPath string) error
	StillToVideo(ctx context.Context, imagePath string, duration float64, outPath string) error
	TrimVideo(ctx context.Context, inPath string, duration float64, outPath string) error
	LoopVideo(ctx context.Context, inPath string, loops int, duration float64, outPath string) error
	CreateTempFile(filename string) string
}

// CoverResizer crops-to-cover a still image to the canonical frame.
type CoverResizer interface {
	CoverResize(srcPath, outPath string) error
}

// Resolver turns a background description and a target duration into a
// normalized video segment of exactly that duration. Every intermediate it
// creates is registered with the request's tracker before the producing
// stage runs.
type Resolver struct {
	probe  Prober
	enc    Encoder
	images CoverResizer
}

func NewResolver(probe Prober, enc Encoder, images CoverResizer) *Resolver {
	return &Resolver{probe: probe, enc: enc, images: images}
}

// Resolve produces the normalized background segment and returns its path.
func (r *Resolver) Resolve(ctx context.Context, bg Background, targetDuration float64, tracker *Tracker) (string, error) {
	if targetDuration <= 0 {
		return "", fmt.Errorf("%w: %f", ErrInvalidDuration, targetDuration)
	}

	tag := uuid.New().String()[:8]

	switch bg.Type {
	case models.BackgroundColor:
		outPath := r.enc.CreateTempFile(fmt.Sprintf("bg_color_%s.mp4", tag))
		tracker.Register(outPath)
		if err := r.enc.SynthesizeColor(ctx, normalizeHex(bg.ColorHex), targetDuration, outPath); err != nil {
			return "", err
		}
		return outPath, nil

	case models.BackgroundImage:
		resizedPath := r.enc.CreateTempFile(fmt.Sprintf("bg_resized_%s.jpg", tag))
		tracker.Register(resizedPath)
		if err := r.images.CoverResize(bg.SourcePath, resizedPath); err != nil {
			return "", err
		}

		outPath := r.enc.CreateTempFile(fmt.Sprintf("bg_image_%s.mp4", tag))
		tracker.Register(outPath)
		if err := r.enc.StillToVideo(ctx, resizedPath, targetDuration, outPath); err != nil {
			return "", err
		}
		return outPath, nil

	case models.BackgroundVideo:
		sourceDuration, err := r.probe.Duration(ctx, bg.SourcePath)
		if err != nil {
			return "", err
		}

		outPath := r.enc.CreateTempFile(fmt.Sprintf("bg_video_%s.mp4", tag))
		tracker.Register(outPath)

		if sourceDuration >= targetDuration {
			if err := r.enc.TrimVideo(ctx, bg.SourcePath, targetDuration, outPath); err != nil {
				return "", err
			}
			return outPath, nil
		}

		loops := loopCount(sourceDuration, targetDuration)
		if err := r.enc.LoopVideo(ctx, bg.SourcePath, loops, targetDuration, outPath); err != nil {
			return "", err
		}
		return outPath, nil

	default:
		return "", fmt.Errorf("unknown background type %q", bg.Type)
	}
}

// loopCount returns how many full play-throughs of a source of duration d
// are needed to cover targetDuration before trimming.
func loopCount(d, targetDuration float64) int {
	return int(math.Ceil(targetDuration / d))
}

// normalizeHex validates a 6-digit hex color, tolerating a leading '#'.
// Anything unresolvable falls back to black rather than failing.
func normalizeHex(hex string) string {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if !hexColorPattern.MatchString(hex) {
		return fallbackColor
	}
	return strings.ToLower(hex)
}
