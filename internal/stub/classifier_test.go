package stub

import (
	"math"
	"testing"

	"github.com/ppiankov/newsguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Deterministic(t *testing.T) {
	a := Classify("Scientists discover water on Mars", nil)
	b := Classify("Scientists discover water on Mars", nil)
	assert.Equal(t, a.Label, b.Label)
	assert.Equal(t, a.Confidence, b.Confidence)
	require.NotNil(t, a.FakeProbability)
	assert.Equal(t, *a.FakeProbability, *b.FakeProbability)
}

func TestClassify_ImageChangesResult(t *testing.T) {
	a := Classify("same text", []byte{1, 2, 3})
	b := Classify("same text", []byte{4, 5, 6})
	assert.NotEqual(t, *a.FakeProbability, *b.FakeProbability)
}

func TestClassify_LabelRule(t *testing.T) {
	inputs := []string{"", "a", "b", "breaking news", "you won't believe this", "quarterly earnings report", "1", "2", "3", "4"}
	for _, in := range inputs {
		r := Classify(in, nil)
		require.NotNil(t, r.FakeProbability)
		p := *r.FakeProbability

		assert.True(t, r.Label.Valid(), in)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, 1.0)
		assert.GreaterOrEqual(t, r.Confidence, 50.0)
		assert.LessOrEqual(t, r.Confidence, 100.0)

		want := model.LabelReal
		conf := 1 - p
		if p > 0.5 {
			want = model.LabelFake
			conf = p
		}
		assert.Equal(t, want, r.Label, in)
		assert.InDelta(t, math.Round(conf*10000)/100, r.Confidence, 1e-9, in)
		assert.Nil(t, r.ScrapedHeadline)
		assert.Nil(t, r.Summary)
		assert.NoError(t, r.Validate())
	}
}
