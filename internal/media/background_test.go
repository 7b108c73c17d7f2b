package media

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenavs/backend/internal/models"
)

// call records one encoder invocation for assertion.
type call struct {
	op       string
	in       string
	hex      string
	loops    int
	duration float64
	out      string
}

type fakeEncoder struct {
	tempDir string
	calls   []call
	fail    string // op name that should fail
}

func (e *fakeEncoder) SynthesizeColor(_ context.Context, hex string, duration float64, outPath string) error {
	e.calls = append(e.calls, call{op: "color", hex: hex, duration: duration, out: outPath})
	if e.fail == "color" {
		return assert.AnError
	}
	return nil
}

func (e *fakeEncoder) StillToVideo(_ context.Context, imagePath string, duration float64, outPath string) error {
	e.calls = append(e.calls, call{op: "still", in: imagePath, duration: duration, out: outPath})
	if e.fail == "still" {
		return assert.AnError
	}
	return nil
}

func (e *fakeEncoder) TrimVideo(_ context.Context, inPath string, duration float64, outPath string) error {
	e.calls = append(e.calls, call{op: "trim", in: inPath, duration: duration, out: outPath})
	if e.fail == "trim" {
		return assert.AnError
	}
	return nil
}

func (e *fakeEncoder) LoopVideo(_ context.Context, inPath string, loops int, duration float64, outPath string) error {
	e.calls = append(e.calls, call{op: "loop", in: inPath, loops: loops, duration: duration, out: outPath})
	if e.fail == "loop" {
		return assert.AnError
	}
	return nil
}

func (e *fakeEncoder) CreateTempFile(filename string) string {
	return filepath.Join(e.tempDir, filename)
}

type fakeProber struct {
	duration float64
	err      error
}

func (p *fakeProber) Duration(context.Context, string) (float64, error) {
	return p.duration, p.err
}

type fakeResizer struct {
	err   error
	calls []call
}

func (r *fakeResizer) CoverResize(srcPath, outPath string) error {
	r.calls = append(r.calls, call{op: "resize", in: srcPath, out: outPath})
	return r.err
}

func TestResolveColorBackground(t *testing.T) {
	enc := &fakeEncoder{tempDir: t.TempDir()}
	resolver := NewResolver(&fakeProber{}, enc, &fakeResizer{})
	tracker := NewTracker()

	out, err := resolver.Resolve(context.Background(), Background{
		Type:     models.BackgroundColor,
		ColorHex: "#1E90FF",
	}, 12.5, tracker)
	require.NoError(t, err)

	require.Len(t, enc.calls, 1)
	assert.Equal(t, "color", enc.calls[0].op)
	assert.Equal(t, "1e90ff", enc.calls[0].hex, "leading # stripped, lowered")
	assert.Equal(t, 12.5, enc.calls[0].duration)
	assert.Equal(t, out, enc.calls[0].out)
}

func TestResolveInvalidColorFallsBackToBlack(t *testing.T) {
	for _, bad := range []string{"", "red", "#12345", "zzzzzz", "#1234567"} {
		enc := &fakeEncoder{tempDir: t.TempDir()}
		resolver := NewResolver(&fakeProber{}, enc, &fakeResizer{})

		_, err := resolver.Resolve(context.Background(), Background{
			Type:     models.BackgroundColor,
			ColorHex: bad,
		}, 5, NewTracker())
		require.NoError(t, err)
		assert.Equal(t, "000000", enc.calls[0].hex, "input %q", bad)
	}
}

func TestResolveImageBackground(t *testing.T) {
	enc := &fakeEncoder{tempDir: t.TempDir()}
	resizer := &fakeResizer{}
	resolver := NewResolver(&fakeProber{}, enc, resizer)

	out, err := resolver.Resolve(context.Background(), Background{
		Type:       models.BackgroundImage,
		SourcePath: "/uploads/cover.png",
	}, 30, NewTracker())
	require.NoError(t, err)

	require.Len(t, resizer.calls, 1)
	assert.Equal(t, "/uploads/cover.png", resizer.calls[0].in)

	require.Len(t, enc.calls, 1)
	assert.Equal(t, "still", enc.calls[0].op)
	assert.Equal(t, resizer.calls[0].out, enc.calls[0].in, "still stage consumes the resized image")
	assert.Equal(t, out, enc.calls[0].out)
}

func TestResolveVideoLongerThanTargetTrims(t *testing.T) {
	enc := &fakeEncoder{tempDir: t.TempDir()}
	resolver := NewResolver(&fakeProber{duration: 60}, enc, &fakeResizer{})

	_, err := resolver.Resolve(context.Background(), Background{
		Type:       models.BackgroundVideo,
		SourcePath: "/uploads/bg.mp4",
	}, 45, NewTracker())
	require.NoError(t, err)

	require.Len(t, enc.calls, 1)
	assert.Equal(t, "trim", enc.calls[0].op)
	assert.Equal(t, 45.0, enc.calls[0].duration)
}

func TestResolveVideoShorterThanTargetLoops(t *testing.T) {
	enc := &fakeEncoder{tempDir: t.TempDir()}
	resolver := NewResolver(&fakeProber{duration: 2}, enc, &fakeResizer{})

	_, err := resolver.Resolve(context.Background(), Background{
		Type:       models.BackgroundVideo,
		SourcePath: "/uploads/bg.mp4",
	}, 5, NewTracker())
	require.NoError(t, err)

	require.Len(t, enc.calls, 1)
	assert.Equal(t, "loop", enc.calls[0].op)
	assert.Equal(t, 3, enc.calls[0].loops, "2s source covering 5s needs 3 play-throughs")
	assert.Equal(t, 5.0, enc.calls[0].duration)
}

func TestResolveVideoEqualDurationTrims(t *testing.T) {
	enc := &fakeEncoder{tempDir: t.TempDir()}
	resolver := NewResolver(&fakeProber{duration: 30}, enc, &fakeResizer{})

	_, err := resolver.Resolve(context.Background(), Background{
		Type:       models.BackgroundVideo,
		SourcePath: "/uploads/bg.mp4",
	}, 30, NewTracker())
	require.NoError(t, err)
	assert.Equal(t, "trim", enc.calls[0].op)
}

func TestResolveRejectsNonPositiveTarget(t *testing.T) {
	resolver := NewResolver(&fakeProber{}, &fakeEncoder{tempDir: t.TempDir()}, &fakeResizer{})

	for _, target := range []float64{0, -3} {
		_, err := resolver.Resolve(context.Background(), Background{
			Type:     models.BackgroundColor,
			ColorHex: "ffffff",
		}, target, NewTracker())
		assert.ErrorIs(t, err, ErrInvalidDuration)
	}
}

func TestResolveUnreadableSourceSurfacesProbeError(t *testing.T) {
	resolver := NewResolver(&fakeProber{err: ErrUnreadableMedia}, &fakeEncoder{tempDir: t.TempDir()}, &fakeResizer{})

	_, err := resolver.Resolve(context.Background(), Background{
		Type:       models.BackgroundVideo,
		SourcePath: "/uploads/corrupt.mp4",
	}, 10, NewTracker())
	assert.ErrorIs(t, err, ErrUnreadableMedia)
}

func TestResolveRegistersOutputsBeforeEncoding(t *testing.T) {
	enc := &fakeEncoder{tempDir: t.TempDir(), fail: "still"}
	resizer := &fakeResizer{}
	resolver := NewResolver(&fakeProber{}, enc, resizer)
	tracker := NewTracker()

	_, err := resolver.Resolve(context.Background(), Background{
		Type:       models.BackgroundImage,
		SourcePath: "/uploads/cover.png",
	}, 10, tracker)
	require.Error(t, err)

	// Both intermediates were registered even though the second stage
	// failed, so cleanup covers partially written output.
	assert.ElementsMatch(t, []string{resizer.calls[0].out, enc.calls[0].out}, tracker.paths)
}

func TestLoopCount(t *testing.T) {
	assert.Equal(t, 3, loopCount(2, 5))
	assert.Equal(t, 1, loopCount(10, 10))
	assert.Equal(t, 2, loopCount(10, 10.1))
	assert.Equal(t, 1, loopCount(10, 3))
}

func TestNormalizeHex(t *testing.T) {
	assert.Equal(t, "1e90ff", normalizeHex("#1E90FF"))
	assert.Equal(t, "abcdef", normalizeHex("abcdef"))
	assert.Equal(t, "000000", normalizeHex("#fff"))
	assert.Equal(t, "000000", normalizeHex("not-a-color"))
	assert.Equal(t, "000000", normalizeHex(""))
}
