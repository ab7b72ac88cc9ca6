package client

import (
	"sync"
	"time"
)

// ChatMessage 本地聊天记录条目；At 为入账时的本地时间，不来自线上
type ChatMessage struct {
	At   time.Time
	From string
	Text string
}

// chatLog 定长环形历史：追加写，超出上限时淘汰最旧条目。
// 仅用于界面展示，不是持久日志。
type chatLog struct {
	mu    sync.Mutex
	max   int
	items []ChatMessage
}

func newChatLog(max int) *chatLog {
	return &chatLog{max: max}
}

func (c *chatLog) add(from, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, ChatMessage{At: time.Now(), From: from, Text: text})
	if len(c.items) > c.max {
		c.items = c.items[len(c.items)-c.max:]
	}
}

// history 返回按时间先后排列的拷贝
func (c *chatLog) history() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatMessage(nil), c.items...)
}
