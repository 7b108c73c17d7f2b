package worker

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenavs/backend/internal/models"
	"github.com/lenavs/backend/internal/pipeline"
	"github.com/lenavs/backend/internal/queue"
)

func strPtr(s string) *string { return &s }

func TestBuildRequestColorBackground(t *testing.T) {
	uploads := t.TempDir()
	w := &Worker{uploadsDir: uploads}

	videoID := uuid.New()
	job := &queue.Job{
		VideoID: videoID,
		Request: models.CreateVideoRequest{
			ProjectName:     "My Song",
			AudioPath:       "song.mp3",
			BackgroundType:  models.BackgroundColor,
			BackgroundColor: strPtr("#ff0000"),
		},
	}

	req, err := w.buildRequest(job)
	require.NoError(t, err)
	assert.Equal(t, videoID, req.ID)
	assert.Equal(t, filepath.Join(uploads, "song.mp3"), req.AudioPath)
	assert.Equal(t, models.BackgroundColor, req.Background.Type)
	assert.Equal(t, "#ff0000", req.Background.ColorHex)
	assert.Equal(t, "My Song", req.OutputNameHint)
}

func TestBuildRequestResolvesBackgroundUnderUploads(t *testing.T) {
	uploads := t.TempDir()
	w := &Worker{uploadsDir: uploads}

	job := &queue.Job{
		VideoID: uuid.New(),
		Request: models.CreateVideoRequest{
			AudioPath:      "song.mp3",
			BackgroundType: models.BackgroundVideo,
			BackgroundPath: strPtr("bg.mp4"),
		},
	}

	req, err := w.buildRequest(job)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(uploads, "bg.mp4"), req.Background.SourcePath)
}

func TestBuildRequestRejectsBadPaths(t *testing.T) {
	w := &Worker{uploadsDir: t.TempDir()}

	cases := []struct {
		name string
		req  models.CreateVideoRequest
	}{
		{"audio escapes uploads", models.CreateVideoRequest{
			AudioPath:      "../../etc/passwd",
			BackgroundType: models.BackgroundColor,
		}},
		{"background escapes uploads", models.CreateVideoRequest{
			AudioPath:      "song.mp3",
			BackgroundType: models.BackgroundVideo,
			BackgroundPath: strPtr("../secrets.mp4"),
		}},
		{"image without path", models.CreateVideoRequest{
			AudioPath:      "song.mp3",
			BackgroundType: models.BackgroundImage,
		}},
		{"unknown type", models.CreateVideoRequest{
			AudioPath:      "song.mp3",
			BackgroundType: "gradient",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := w.buildRequest(&queue.Job{VideoID: uuid.New(), Request: tc.req})
			assert.Error(t, err)
		})
	}
}

func TestErrorCodeCarriesStage(t *testing.T) {
	stageErr := &pipeline.StageError{Stage: pipeline.StageMux, Err: assert.AnError}
	assert.Equal(t, "mux_failed", errorCode(stageErr))

	wrapped := &pipeline.StageError{Stage: pipeline.StageResolveBackground, Err: assert.AnError}
	assert.Equal(t, "resolve_background_failed", errorCode(wrapped))

	assert.Equal(t, "pipeline_failed", errorCode(errors.New("boom")))
}
