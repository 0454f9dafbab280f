package posture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationMean_ConstantSignal(t *testing.T) {
	mean, err := CalibrationMean([]float64{1.0, 1.0, 1.0})

	require.NoError(t, err)
	assert.Equal(t, 1.0, mean)
}

func TestCalibrationMean_Average(t *testing.T) {
	mean, err := CalibrationMean([]float64{0.5, 0.75, 1.0})

	require.NoError(t, err)
	assert.InDelta(t, 0.75, mean, 1e-12)
}

func TestCalibrationMean_EmptyWindow(t *testing.T) {
	_, err := CalibrationMean(nil)

	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestNearestTo_TieTakesLowerValue(t *testing.T) {
	v, err := NearestTo(0.5, []float64{0.75, 0.25})

	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
}

func TestNearestTo_DoesNotModifyInput(t *testing.T) {
	samples := []float64{1.3, 0.8, 1.02}
	_, err := NearestTo(1.0, samples)

	require.NoError(t, err)
	assert.Equal(t, []float64{1.3, 0.8, 1.02}, samples)
}

func TestClassify_WithinDeadbandIsGood(t *testing.T) {
	c, err := Classify(1.0, []float64{0.80, 0.95, 1.02, 1.30}, DefaultPolicy())

	require.NoError(t, err)
	assert.Equal(t, 1.02, c.Selected)
	assert.InDelta(t, 0.02, c.Deviation, 1e-9)
	assert.True(t, c.Good)
	assert.Equal(t, 4, c.Samples)
}

func TestClassify_SlouchIsBad(t *testing.T) {
	c, err := Classify(1.0, []float64{0.70, 0.75, 0.80}, DefaultPolicy())

	require.NoError(t, err)
	assert.Equal(t, 0.80, c.Selected)
	assert.InDelta(t, 0.20, c.Deviation, 1e-9)
	assert.False(t, c.Good)
}

func TestClassify_AboveCeilingIsGood(t *testing.T) {
	c, err := Classify(1.0, []float64{2.5}, DefaultPolicy())

	require.NoError(t, err)
	assert.Equal(t, 2.5, c.Selected)
	assert.InDelta(t, 1.5, c.Deviation, 1e-9)
	assert.True(t, c.Good)
}

func TestClassify_SingleOutlierIgnored(t *testing.T) {
	// 窗口中位数会落在异常值一侧，最近邻选择不受影响
	c, err := Classify(1.0, []float64{1.01, 1.6, 1.7, 1.8}, DefaultPolicy())

	require.NoError(t, err)
	assert.Equal(t, 1.01, c.Selected)
	assert.True(t, c.Good)
}

func TestClassify_EmptyWindow(t *testing.T) {
	_, err := Classify(1.0, []float64{}, DefaultPolicy())

	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestPolicy_IsBadBoundsInclusive(t *testing.T) {
	p := DefaultPolicy()
	p.Deadband = 0.25
	p.Ceiling = 0.5

	assert.False(t, p.IsBad(0.125))
	assert.True(t, p.IsBad(0.25))
	assert.True(t, p.IsBad(0.5))
	assert.False(t, p.IsBad(0.75))
}
