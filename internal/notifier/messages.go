package notifier

import "math/rand"

// AlertTitle 报警标题
const AlertTitle = "💢 Unturtle is Angry"

// alertMessages 报警文案池，每次随机选取一条
var alertMessages = []string{
	"If slouching were an Olympic sport, you'd be taking home the gold.",
	"Even a shrimp stands straighter than you right now.",
	"If you were any more bent, you'd be a boomerang.",
	"Your spine's more curved than a question mark – straighten up!",
	"Your posture's so slouched, you're practically inventing a new yoga pose.",
	"You're slouching so much, you might find oil down there.",
	"You're bending like you're bowing to your computer. Let's not worship technology too much!",
}

// MessagePool 报警文案选择器
type MessagePool struct {
	messages []string
	intn     func(n int) int
}

// NewMessagePool 使用默认文案池
func NewMessagePool() *MessagePool {
	return &MessagePool{messages: alertMessages, intn: rand.Intn}
}

// Pick 随机选取一条文案
func (p *MessagePool) Pick() string {
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[p.intn(len(p.messages))]
}

// Messages 返回文案池副本
func (p *MessagePool) Messages() []string {
	return append([]string(nil), p.messages...)
}
