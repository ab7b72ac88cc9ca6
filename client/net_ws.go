package client

import (
	"encoding/json"
	"time"

	"gridwalk/protocol"
)

const writeDeadline = 5 * time.Second

// writePump 独立协程，独占连接的写端，产出本会话的全部出站信封。
// 次序契约：首包无条件是 hello；之后每个节拍恰好一条——
// 优先通道里有待发消息则发它（不攒批），否则重采样当前意图方向发送。
// 未变化方向的冗余重发是刻意的，兼作隐式保活。
func (s *Session) writePump() {
	defer s.pumps.Done()

	hello := protocol.ClientEnvelope{Hello: &protocol.Hello{Name: s.name}}
	if err := s.writeEnvelope(hello); err != nil {
		s.fail("send hello: %v", err)
		return
	}
	s.metrics.incSentHello()
	// 流就绪信号：hello 入流后恰好置位一次，此后才接受优先消息
	s.ready.Store(true)

	// 方向读取失败时退回最近一次成功采样的值，发送路径不因此中断
	lastDir := protocol.DirNone

	ticker := time.NewTicker(s.opts.SendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			var env protocol.ClientEnvelope
			select {
			case env = <-s.priority:
				// 优先消息赢得本节拍；意图顺延到下一节拍，不会丢失
				s.metrics.incSentChat()
			default:
				lastDir = protocol.Direction(s.dir.Load())
				env = protocol.ClientEnvelope{Input: &protocol.PlayerInput{Dir: lastDir}}
				s.metrics.incSentInput()
			}
			if err := s.writeEnvelope(env); err != nil {
				s.fail("write: %v", err)
				return
			}
		}
	}
}

func (s *Session) writeEnvelope(env protocol.ClientEnvelope) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return s.conn.WriteJSON(env)
}

// readPump 独立协程，阻塞等待入站信封；按变体分类后以 (kind, payload)
// 送入入站队列，保持到达顺序。不可识别的变体静默丢弃（前向兼容）。
// 读错误与对端关闭都按传输层故障处理，除非已请求停止。
func (s *Session) readPump() {
	defer s.pumps.Done()
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.fail("read: %v", err)
			}
			return
		}
		var env protocol.ServerEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			// 畸形消息与未识别变体同等对待：忽略而非报错
			s.metrics.incUnknownDropped()
			continue
		}
		kind := env.Kind()
		switch kind {
		case protocol.KindNone:
			s.metrics.incUnknownDropped()
			continue
		case protocol.KindMap:
			s.metrics.incRecvMap()
		case protocol.KindDelta:
			s.metrics.incRecvDelta()
		case protocol.KindChat:
			s.metrics.incRecvChat()
		}
		// 增量不允许丢弃或重排：队列满时在此背压，等待应用消费
		select {
		case s.inbound <- inboundEvent{kind: kind, env: env}:
		case <-s.done:
			return
		}
	}
}
