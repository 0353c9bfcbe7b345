package stub

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/ppiankov/newsguard/internal/model"
)

// Classify produces a deterministic prediction for the given content.
// The fake probability is derived from a SHA-256 of the input; label and
// confidence follow the real model's rule: Fake above 0.5, confidence is the
// probability of the chosen label as a percentage rounded to two decimals.
func Classify(text string, image []byte) model.PredictionResult {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write(image)
	sum := h.Sum(nil)

	p := float64(binary.BigEndian.Uint64(sum[:8])>>11) / float64(1<<53)

	label := model.LabelReal
	conf := 1 - p
	if p > 0.5 {
		label = model.LabelFake
		conf = p
	}

	return model.PredictionResult{
		Label:           label,
		Confidence:      math.Round(conf*100*100) / 100,
		FakeProbability: model.Float64Ptr(p),
	}
}
