package server

import "time"

// StartTicker 启动广播循环（幂等）：按配置的节拍收集增量并广播。
// 世界推进由输入驱动，Tick 只负责把累计的变更扇出。
func (h *Hub) StartTicker() {
	h.tickOnce.Do(func() {
		interval := time.Second / time.Duration(h.cfg.TickRate)
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-h.stop:
					return
				case <-ticker.C:
					start := time.Now()
					h.broadcastDelta()
					h.metrics.AddTick(time.Since(start).Nanoseconds())
				}
			}
		}()
	})
}
