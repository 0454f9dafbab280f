package posture

// SignalWindow 固定 tick 数的采样窗口
// tick 计数与样本数分开：未检测到关节的 tick 只计数、不产生样本
type SignalWindow struct {
	capacity int
	ticks    int
	samples  []float64
}

// NewSignalWindow 创建容量为 capacity 个 tick 的窗口
func NewSignalWindow(capacity int) *SignalWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &SignalWindow{
		capacity: capacity,
		samples:  make([]float64, 0, capacity),
	}
}

// Tick 记录一次采样，ok=false 表示该 tick 未检测到
// 返回 true 表示窗口已满，应调用 Drain 归约
func (w *SignalWindow) Tick(value float64, ok bool) bool {
	if w.Closed() {
		return true
	}
	w.ticks++
	if ok {
		w.samples = append(w.samples, value)
	}
	return w.Closed()
}

// Closed 窗口是否已满
func (w *SignalWindow) Closed() bool {
	return w.ticks >= w.capacity
}

// Drain 取出全部样本并清空窗口
func (w *SignalWindow) Drain() []float64 {
	samples := w.samples
	w.samples = make([]float64, 0, w.capacity)
	w.ticks = 0
	return samples
}

// Len 当前样本数
func (w *SignalWindow) Len() int { return len(w.samples) }

// Ticks 当前 tick 数
func (w *SignalWindow) Ticks() int { return w.ticks }

// Capacity 窗口 tick 容量
func (w *SignalWindow) Capacity() int { return w.capacity }
