package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lenavs/backend/internal/db"
	"github.com/lenavs/backend/internal/media"
	"github.com/lenavs/backend/internal/models"
	"github.com/lenavs/backend/internal/pipeline"
	"github.com/lenavs/backend/internal/queue"
	"github.com/lenavs/backend/internal/storage"
)

// Worker consumes generation jobs from the queue and runs the pipeline.
// Concurrency is bounded by the number of worker goroutines, so a
// long-running encode occupies one slot instead of starving the API.
type Worker struct {
	db         *db.DB
	queue      *queue.Queue
	storage    *storage.Storage
	orch       *pipeline.Orchestrator
	uploadsDir string
}

func New(database *db.DB, q *queue.Queue, stor *storage.Storage, orch *pipeline.Orchestrator, uploadsDir string) *Worker {
	return &Worker{
		db:         database,
		queue:      q,
		storage:    stor,
		orch:       orch,
		uploadsDir: uploadsDir,
	}
}

// Start begins processing jobs and blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("[Worker] started with concurrency: %d", concurrency)

	g := new(errgroup.Group)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.processQueue(ctx)
			return nil
		})
	}

	g.Wait()
	log.Println("[Worker] shut down")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queue.QueueGenerateVideo, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[Worker] error dequeuing: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("[Worker] processing job %s (video: %s)", job.ID, job.VideoID)

			if err := w.handleGenerate(ctx, job); err != nil {
				log.Printf("[Worker] job %s failed: %v", job.ID, err)
			} else {
				log.Printf("[Worker] job %s completed", job.ID)
			}
		}
	}
}

// handleGenerate runs one generation request end to end: pipeline, publish
// to the deliverable store, record update. Failures are written to the
// video record with the originating stage as the error code.
func (w *Worker) handleGenerate(ctx context.Context, job *queue.Job) error {
	if err := w.db.UpdateVideoStatus(ctx, job.VideoID, models.VideoStatusProcessing); err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}

	req, err := w.buildRequest(job)
	if err != nil {
		w.db.UpdateVideoError(ctx, job.VideoID, "invalid_input", err.Error())
		return err
	}

	result, err := w.orch.Run(ctx, req)
	if err != nil {
		w.db.UpdateVideoError(ctx, job.VideoID, errorCode(err), err.Error())
		return fmt.Errorf("pipeline failed: %w", err)
	}

	deliverableID := uuid.New()
	if err := w.storage.Publish(deliverableID, result.Path); err != nil {
		w.db.UpdateVideoError(ctx, job.VideoID, "store_failed", err.Error())
		return fmt.Errorf("failed to store deliverable: %w", err)
	}

	if err := w.db.SetVideoDeliverable(ctx, job.VideoID, deliverableID, result.DurationSeconds); err != nil {
		return fmt.Errorf("failed to record deliverable: %w", err)
	}

	return nil
}

func (w *Worker) buildRequest(job *queue.Job) (pipeline.Request, error) {
	audioPath, err := storage.ResolveUnder(w.uploadsDir, job.Request.AudioPath)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("bad audio path: %w", err)
	}

	bg := media.Background{Type: job.Request.BackgroundType}
	switch bg.Type {
	case models.BackgroundColor:
		if job.Request.BackgroundColor != nil {
			bg.ColorHex = *job.Request.BackgroundColor
		}
	case models.BackgroundImage, models.BackgroundVideo:
		if job.Request.BackgroundPath == nil {
			return pipeline.Request{}, fmt.Errorf("background path is required for %s backgrounds", bg.Type)
		}
		bg.SourcePath, err = storage.ResolveUnder(w.uploadsDir, *job.Request.BackgroundPath)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("bad background path: %w", err)
		}
	default:
		return pipeline.Request{}, fmt.Errorf("unknown background type %q", bg.Type)
	}

	return pipeline.Request{
		ID:             job.VideoID,
		AudioPath:      audioPath,
		Background:     bg,
		OutputNameHint: job.Request.ProjectName,
	}, nil
}

// errorCode derives the video record's error code from a pipeline failure.
func errorCode(err error) string {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage + "_failed"
	}
	return "pipeline_failed"
}
