package media

import (
	"fmt"

	"github.com/disintegration/imaging"
)

// ImageResizer prepares a still image for use as a video background.
type ImageResizer struct{}

// CoverResize resizes and center-crops the source image to cover the
// canonical 16:9 frame, then writes it to outPath. Unreadable images
// surface ErrUnreadableMedia.
func (ImageResizer) CoverResize(srcPath, outPath string) error {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("%w: failed to open image %s: %v", ErrUnreadableMedia, srcPath, err)
	}

	covered := imaging.Fill(img, outputWidth, outputHeight, imaging.Center, imaging.Lanczos)

	if err := imaging.Save(covered, outPath, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("failed to save resized image: %w", err)
	}

	return nil
}
