package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veldtlabs/docdex/core"
)

// testPage draws a few dark horizontal "text lines" on a white page.
func testPage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for _, line := range []int{h / 4, h / 2, 3 * h / 4} {
		for x := 2; x < w-2; x++ {
			img.SetGray(x, line, color.Gray{Y: 20})
		}
	}
	return img
}

func TestApplyTransform_Identity(t *testing.T) {
	img := testPage(32, 32)
	out := ApplyTransform(core.TransformIdentity, img)
	assert.Same(t, image.Image(img), out, "identity must not copy the image")
}

func TestApplyTransform_UnknownFallsBackToIdentity(t *testing.T) {
	img := testPage(16, 16)
	out := ApplyTransform(core.Transform(99), img)
	assert.Same(t, image.Image(img), out)
}

func TestDenoise_PreservesDimensions(t *testing.T) {
	img := testPage(24, 40)
	out := ApplyTransform(core.TransformDenoise, img)
	assert.Equal(t, img.Bounds(), out.Bounds())
}

func TestDenoise_SmoothsIsolatedNoise(t *testing.T) {
	img := testPage(24, 24)
	img.SetGray(12, 3, color.Gray{Y: 0}) // a lone dark speck on white

	out := ApplyTransform(core.TransformDenoise, img).(*image.Gray)
	assert.Greater(t, out.GrayAt(12, 3).Y, uint8(128), "speck should blur toward white")
}

func TestAdaptiveThreshold_ProducesBinaryOutput(t *testing.T) {
	img := testPage(48, 48)
	out := ApplyTransform(core.TransformAdaptiveThreshold, img).(*image.Gray)

	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			v := out.GrayAt(x, y).Y
			if v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
}

func TestDeskew_PreservesDimensions(t *testing.T) {
	img := testPage(48, 48)
	out := ApplyTransform(core.TransformDeskew, img)
	assert.Equal(t, img.Bounds(), out.Bounds())
}

func TestDeskew_StraightPageUnchanged(t *testing.T) {
	img := testPage(64, 64)
	out := ApplyTransform(core.TransformDeskew, img).(*image.Gray)

	// A page with perfectly horizontal lines should not be rotated.
	for _, line := range []int{16, 32, 48} {
		assert.Less(t, out.GrayAt(32, line).Y, uint8(128), "text line should survive deskew")
	}
}
