package ocr

import (
	"image"
	"image/color"
	"math"

	"github.com/veldtlabs/docdex/core"
)

// TransformFunc is a pure image preprocessing function.
type TransformFunc func(image.Image) image.Image

// transformFuncs maps every known transform to its implementation.
var transformFuncs = map[core.Transform]TransformFunc{
	core.TransformIdentity:          identity,
	core.TransformDenoise:           denoise,
	core.TransformAdaptiveThreshold: adaptiveThreshold,
	core.TransformDeskew:            deskew,
}

// ApplyTransform applies the named transform to an image.
// Unknown transforms fall back to identity.
func ApplyTransform(t core.Transform, img image.Image) image.Image {
	fn, ok := transformFuncs[t]
	if !ok {
		return img
	}
	return fn(img)
}

func identity(img image.Image) image.Image {
	return img
}

// toGray converts any image to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// denoise applies a 3x3 box blur on the grayscale image.
func denoise(img image.Image) image.Image {
	gray := toGray(img)
	bounds := gray.Bounds()
	out := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var sum, n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := x+dx, y+dy
					if px < bounds.Min.X || px >= bounds.Max.X ||
						py < bounds.Min.Y || py >= bounds.Max.Y {
						continue
					}
					sum += int(gray.GrayAt(px, py).Y)
					n++
				}
			}
			out.SetGray(x, y, color.Gray{Y: uint8(sum / n)})
		}
	}
	return out
}

const (
	thresholdWindow = 15 // local window radius in pixels
	thresholdBias   = 10 // subtracted from the local mean
)

// adaptiveThreshold binarizes the image against the mean of a local window,
// computed with an integral image so the pass stays linear in pixel count.
func adaptiveThreshold(img image.Image) image.Image {
	gray := toGray(img)
	bounds := gray.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == 0 || h == 0 {
		return gray
	}

	// integral[y][x] = sum of all pixels above and left of (x, y)
	integral := make([][]int64, h+1)
	for i := range integral {
		integral[i] = make([]int64, w+1)
	}
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[y+1][x+1] = integral[y][x+1] + rowSum
		}
	}

	out := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0 := max(0, x-thresholdWindow)
			y0 := max(0, y-thresholdWindow)
			x1 := min(w-1, x+thresholdWindow)
			y1 := min(h-1, y+thresholdWindow)

			area := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[y1+1][x1+1] - integral[y0][x1+1] - integral[y1+1][x0] + integral[y0][x0]
			mean := sum / area

			v := int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			if v > mean-thresholdBias {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 255})
			} else {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// deskew corrects small scan rotations. It scores candidate angles by the
// variance of horizontal projection profiles (text lines produce sharp
// peaks when the page is straight) and rotates by the best one.
func deskew(img image.Image) image.Image {
	gray := toGray(img)

	bestAngle := 0.0
	bestScore := profileVariance(gray, 0)
	for angle := -3.0; angle <= 3.0; angle += 0.5 {
		if angle == 0 {
			continue
		}
		score := profileVariance(gray, angle)
		if score > bestScore {
			bestScore = score
			bestAngle = angle
		}
	}

	if bestAngle == 0 {
		return gray
	}
	return rotate(gray, -bestAngle)
}

// profileVariance computes the variance of per-row darkness sums after a
// virtual rotation by the given angle in degrees.
func profileVariance(gray *image.Gray, angle float64) float64 {
	bounds := gray.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if h == 0 {
		return 0
	}

	rad := angle * math.Pi / 180
	tan := math.Tan(rad)

	rows := make([]float64, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Shear approximation of rotation for small angles
			sy := y + int(float64(x)*tan)
			if sy < 0 || sy >= h {
				continue
			}
			v := gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+sy).Y
			rows[y] += float64(255 - v)
		}
	}

	var mean float64
	for _, r := range rows {
		mean += r
	}
	mean /= float64(h)

	var variance float64
	for _, r := range rows {
		d := r - mean
		variance += d * d
	}
	return variance / float64(h)
}

// rotate performs a nearest-neighbor rotation around the image center,
// filling uncovered pixels with white.
func rotate(gray *image.Gray, angle float64) *image.Gray {
	bounds := gray.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	out := image.NewGray(bounds)

	rad := angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx := float64(w) / 2
	cy := float64(h) / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Inverse mapping: where did this output pixel come from?
			dx := float64(x) - cx
			dy := float64(y) - cy
			sx := int(cx + dx*cos + dy*sin)
			sy := int(cy - dx*sin + dy*cos)

			if sx < 0 || sx >= w || sy < 0 || sy >= h {
				out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 255})
				continue
			}
			out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, gray.GrayAt(bounds.Min.X+sx, bounds.Min.Y+sy))
		}
	}
	return out
}
