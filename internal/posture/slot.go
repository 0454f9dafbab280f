package posture

// LatestSlot 单槽"最新值"通道：写入从不阻塞，未读的旧值被新值替换
type LatestSlot[T any] struct {
	ch chan T
}

// NewLatestSlot 创建单槽通道
func NewLatestSlot[T any]() *LatestSlot[T] {
	return &LatestSlot[T]{ch: make(chan T, 1)}
}

// Offer 写入最新值，返回是否丢弃了一个未读的旧值
func (s *LatestSlot[T]) Offer(v T) (replaced bool) {
	for {
		select {
		case s.ch <- v:
			return replaced
		default:
		}
		select {
		case <-s.ch:
			replaced = true
		default:
		}
	}
}

// C 读取端
func (s *LatestSlot[T]) C() <-chan T {
	return s.ch
}
