package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// HubMetrics 记录服务端运行期的关键指标（用于监控与调试）
type HubMetrics struct {
	TickCount      int64 // 统计的 Tick 次数
	TotalTickNs    int64 // Tick 累计耗时（纳秒）
	DeltasSent     int64 // 广播出去的增量数
	ChatsBroadcast int64 // 扇出的聊天条数
	ChatRejected   int64 // 被拒绝的聊天（空或超长）
	InputsApplied  int64 // 已应用的输入数
	SendDropped    int64 // 因发送队列满被丢弃的消息数
	UnknownDropped int64 // 被忽略的不可识别信封数
}

func (m *HubMetrics) IncDeltasSent()     { atomic.AddInt64(&m.DeltasSent, 1) }
func (m *HubMetrics) IncChatsBroadcast() { atomic.AddInt64(&m.ChatsBroadcast, 1) }
func (m *HubMetrics) IncChatRejected()   { atomic.AddInt64(&m.ChatRejected, 1) }
func (m *HubMetrics) IncInputsApplied()  { atomic.AddInt64(&m.InputsApplied, 1) }
func (m *HubMetrics) IncSendDropped()    { atomic.AddInt64(&m.SendDropped, 1) }
func (m *HubMetrics) IncUnknownDropped() { atomic.AddInt64(&m.UnknownDropped, 1) }
func (m *HubMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *HubMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"avg_tick_ms":     avgMs,
		"deltas_sent":     atomic.LoadInt64(&m.DeltasSent),
		"chats_broadcast": atomic.LoadInt64(&m.ChatsBroadcast),
		"chat_rejected":   atomic.LoadInt64(&m.ChatRejected),
		"inputs_applied":  atomic.LoadInt64(&m.InputsApplied),
		"send_dropped":    atomic.LoadInt64(&m.SendDropped),
		"unknown_dropped": atomic.LoadInt64(&m.UnknownDropped),
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (h *Hub) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"players": h.state.PlayerCount(),
		"metrics": h.metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
