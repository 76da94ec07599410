package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veldtlabs/docdex/core"
)

func TestUniformSelector_CoversAllTransforms(t *testing.T) {
	selector := UniformSelector{}

	seen := make(map[core.Transform]int)
	for i := 0; i < 1000; i++ {
		seen[selector.Pick()]++
	}

	for _, transform := range core.Transforms {
		assert.Greater(t, seen[transform], 0, "transform %s never chosen in 1000 draws", transform)
	}
	assert.Len(t, seen, len(core.Transforms), "selector picked an unknown transform")
}

func TestFixedSelector(t *testing.T) {
	selector := FixedSelector{Transform: core.TransformDeskew}
	for i := 0; i < 10; i++ {
		assert.Equal(t, core.TransformDeskew, selector.Pick())
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{".png", true},
		{".JPG", true},
		{".jpeg", true},
		{".bmp", true},
		{".tiff", true},
		{".docx", false},
		{".txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.ext))
		})
	}
}
