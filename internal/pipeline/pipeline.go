// Package pipeline sequences one video generation request: probe the audio,
// resolve the background against the audio duration, mux the two into the
// deliverable. Stages are strictly ordered and any failure aborts the rest,
// cleans up every temp artifact registered so far, and surfaces a single
// error carrying the originating stage.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"

	"github.com/google/uuid"
	"github.com/lenavs/backend/internal/media"
)

// Stage names carried by failures.
const (
	StageProbeAudio        = "probe_audio"
	StageResolveBackground = "resolve_background"
	StageMux               = "mux"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// BackgroundResolver is the normalization stage.
type BackgroundResolver interface {
	Resolve(ctx context.Context, bg media.Background, targetDuration float64, tracker *media.Tracker) (string, error)
}

// Muxer produces the final deliverable from a background segment and the
// audio track.
type Muxer interface {
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
	CreateTempFile(filename string) string
}

// Request is one generation request. Ephemeral; exists only for the
// duration of one run and is never persisted.
type Request struct {
	ID             uuid.UUID
	AudioPath      string
	Background     media.Background
	OutputNameHint string
}

// Result is the successful outcome of a run.
type Result struct {
	Path            string
	DurationSeconds float64
}

// StageError aggregates a pipeline failure with the stage it originated in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Orchestrator runs the probe → resolve → mux sequence. It is stateless
// between requests: every run owns an independent temp artifact tracker.
type Orchestrator struct {
	probe    media.Prober
	resolver BackgroundResolver
	muxer    Muxer
}

func NewOrchestrator(probe media.Prober, resolver BackgroundResolver, muxer Muxer) *Orchestrator {
	return &Orchestrator{probe: probe, resolver: resolver, muxer: muxer}
}

// Run executes the pipeline and returns the deliverable path, or a stage
// failure after full cleanup. No partial deliverable is ever returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	tracker := media.NewTracker()

	result, err := o.run(ctx, req, tracker)
	if err != nil {
		tracker.Cleanup()
		return nil, err
	}

	// Intermediates go; the deliverable stays.
	tracker.Keep(result.Path)
	tracker.Cleanup()

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, tracker *media.Tracker) (*Result, error) {
	audioDuration, err := o.probe.Duration(ctx, req.AudioPath)
	if err != nil {
		return nil, &StageError{Stage: StageProbeAudio, Err: err}
	}

	log.Printf("[Pipeline] %s: audio duration %.3fs, resolving %s background", req.ID, audioDuration, req.Background.Type)

	backgroundPath, err := o.resolver.Resolve(ctx, req.Background, audioDuration, tracker)
	if err != nil {
		return nil, &StageError{Stage: StageResolveBackground, Err: err}
	}

	outPath := o.muxer.CreateTempFile(fmt.Sprintf("%s_%s.mp4", sanitizeName(req.OutputNameHint), req.ID))
	tracker.Register(outPath)

	if err := o.muxer.Mux(ctx, backgroundPath, req.AudioPath, outPath); err != nil {
		return nil, &StageError{Stage: StageMux, Err: err}
	}

	// Measure the muxed output for the record; fall back to the audio
	// duration when probing the fresh file fails.
	measured, err := o.probe.Duration(ctx, outPath)
	if err != nil {
		log.Printf("[Pipeline] %s: could not measure deliverable duration: %v", req.ID, err)
		measured = audioDuration
	}

	log.Printf("[Pipeline] %s: deliverable ready (%.3fs)", req.ID, measured)

	return &Result{Path: outPath, DurationSeconds: measured}, nil
}

// sanitizeName reduces an output name hint to a safe filename fragment.
func sanitizeName(hint string) string {
	cleaned := unsafeNameChars.ReplaceAllString(hint, "_")
	if cleaned == "" {
		return "video"
	}
	return cleaned
}
