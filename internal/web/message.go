package web

// MessageType websocket 消息类型
type MessageType int

const (
	JSONMessage MessageType = iota
	BinaryMessage
)

// Message 待广播的消息
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage 由已编码的 JSON 构造消息
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}
