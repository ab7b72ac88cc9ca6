package client

import "sync/atomic"

// SessionMetrics 记录会话运行期的关键指标（用于监控与测试断言）
type SessionMetrics struct {
	SentHello       int64 // 已发送的 hello 数（每会话应为 1）
	SentInput       int64 // 已发送的意图信封数
	SentChat        int64 // 已发送的优先消息数
	RecvMap         int64 // 收到的全量快照数
	RecvDelta       int64 // 收到的增量数
	RecvChat        int64 // 收到的聊天广播数
	UnknownDropped  int64 // 因变体不可识别被忽略的入站信封数
	PriorityDropped int64 // 因优先队列满被丢弃的发送请求数
}

func (m *SessionMetrics) incSentHello() { atomic.AddInt64(&m.SentHello, 1) }
func (m *SessionMetrics) incSentInput() { atomic.AddInt64(&m.SentInput, 1) }
func (m *SessionMetrics) incSentChat()  { atomic.AddInt64(&m.SentChat, 1) }
func (m *SessionMetrics) incRecvMap()   { atomic.AddInt64(&m.RecvMap, 1) }
func (m *SessionMetrics) incRecvDelta() { atomic.AddInt64(&m.RecvDelta, 1) }
func (m *SessionMetrics) incRecvChat()  { atomic.AddInt64(&m.RecvChat, 1) }
func (m *SessionMetrics) incUnknownDropped() {
	atomic.AddInt64(&m.UnknownDropped, 1)
}
func (m *SessionMetrics) incPriorityDropped() {
	atomic.AddInt64(&m.PriorityDropped, 1)
}

// Snapshot 返回只读副本，便于测试与诊断输出
func (m *SessionMetrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"sent_hello":       atomic.LoadInt64(&m.SentHello),
		"sent_input":       atomic.LoadInt64(&m.SentInput),
		"sent_chat":        atomic.LoadInt64(&m.SentChat),
		"recv_map":         atomic.LoadInt64(&m.RecvMap),
		"recv_delta":       atomic.LoadInt64(&m.RecvDelta),
		"recv_chat":        atomic.LoadInt64(&m.RecvChat),
		"unknown_dropped":  atomic.LoadInt64(&m.UnknownDropped),
		"priority_dropped": atomic.LoadInt64(&m.PriorityDropped),
	}
}
