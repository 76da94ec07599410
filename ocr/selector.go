package ocr

import (
	"math/rand/v2"

	"github.com/veldtlabs/docdex/core"
)

// Selector chooses a preprocessing transform for a document.
// Choices must be independent across documents.
type Selector interface {
	Pick() core.Transform
}

// UniformSelector picks uniformly at random among all known transforms.
//
// There is deliberately no seeding contract: repeated builds of the same
// corpus see different augmentation choices, which improves training
// diversity downstream. Callers that need reproducible choices should
// inject their own seeded Selector.
type UniformSelector struct{}

var _ Selector = UniformSelector{}

// Pick returns one of core.Transforms, chosen uniformly at random.
func (UniformSelector) Pick() core.Transform {
	return core.Transforms[rand.IntN(len(core.Transforms))]
}

// FixedSelector always picks the same transform. Useful for tests and for
// callers that want deterministic builds.
type FixedSelector struct {
	Transform core.Transform
}

var _ Selector = FixedSelector{}

// Pick returns the configured transform.
func (s FixedSelector) Pick() core.Transform {
	return s.Transform
}
