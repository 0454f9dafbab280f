package posture

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Classification 一个跟踪窗口的判定结果
type Classification struct {
	Reference float64 // 校准基线
	Selected  float64 // 窗口内最接近基线的样本
	Deviation float64 // |Reference - Selected|
	Samples   int     // 窗口有效样本数
	Good      bool
}

// CalibrationMean 校准窗口归约为算术平均
// 空窗口返回 ErrEmptyWindow，调用方不得用它覆盖已有基线
func CalibrationMean(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyWindow
	}
	return stat.Mean(samples, nil), nil
}

// NearestTo 排序后选出与 ref 最接近的样本，距离相同时取较小值
func NearestTo(ref float64, samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyWindow
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	best := sorted[0]
	bestDist := math.Abs(ref - best)
	for _, v := range sorted[1:] {
		if d := math.Abs(ref - v); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best, nil
}

// Classify 跟踪窗口判定
// 选择最接近基线的样本而不是中位数，单个异常 tick 不会影响结果
func Classify(ref float64, samples []float64, p Policy) (Classification, error) {
	selected, err := NearestTo(ref, samples)
	if err != nil {
		return Classification{}, err
	}
	deviation := math.Abs(ref - selected)
	return Classification{
		Reference: ref,
		Selected:  selected,
		Deviation: deviation,
		Samples:   len(samples),
		Good:      !p.IsBad(deviation),
	}, nil
}
