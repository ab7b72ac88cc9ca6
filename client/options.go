package client

import (
	"time"

	"go.uber.org/zap"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultSendInterval = time.Second / 30 // ≈30Hz，每个节拍恰好一条出站信封
	defaultChatHistory  = 7
	defaultInboundQueue = 256
	defaultPriorityCap  = 64
	defaultStopJoinWait = time.Second
)

// Options 会话可调参数；零值字段取默认值
type Options struct {
	DialTimeout  time.Duration // 连接握手超时，默认 5s
	SendInterval time.Duration // 出站发送节拍，默认 1s/30
	ChatHistory  int           // 聊天历史环形缓冲长度，默认 7
	InboundQueue int           // 入站事件队列容量，默认 256
	PriorityCap  int           // 优先消息队列容量，默认 64
	StopJoinWait time.Duration // Stop 等待收发协程退出的上限，默认 1s
	Logger       *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.SendInterval <= 0 {
		o.SendInterval = defaultSendInterval
	}
	if o.ChatHistory <= 0 {
		o.ChatHistory = defaultChatHistory
	}
	if o.InboundQueue <= 0 {
		o.InboundQueue = defaultInboundQueue
	}
	if o.PriorityCap <= 0 {
		o.PriorityCap = defaultPriorityCap
	}
	if o.StopJoinWait <= 0 {
		o.StopJoinWait = defaultStopJoinWait
	}
	if o.Logger == nil {
		// 库默认静默；需要日志时由调用方注入（如 logging.Log）
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}
