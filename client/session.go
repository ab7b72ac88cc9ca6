// Package client 实现同步核心：面向单条长连接的会话对象，
// 出站侧按固定节拍复用意图与优先消息，入站侧把服务端增量折叠进本地状态。
// 服务端拥有真相；本包只维护一份本地一致的缓存视图。
package client

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gridwalk/protocol"
)

// inboundEvent 入站队列元素：(变体, 载荷)
type inboundEvent struct {
	kind protocol.Kind
	env  protocol.ServerEnvelope
}

// Session 应用持有的会话门面：一次 Start 对应一次底层连接尝试，
// 传输层故障即为会话终点，不做自动重连。
type Session struct {
	opts Options
	log  *zap.SugaredLogger

	name string
	conn *websocket.Conn

	state   *GameState
	chat    *chatLog
	metrics *SessionMetrics

	inbound  chan inboundEvent
	priority chan protocol.ClientEnvelope

	dir atomic.Int32 // 当前意图方向，发送节拍每次重采样

	ready    atomic.Bool // hello 已入流（恰好置位一次）
	started  atomic.Bool
	stopped  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	stopOnce sync.Once
	pumps    sync.WaitGroup
}

// New 构造尚未连接的会话对象
func New(opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		opts:     opts,
		log:      opts.Logger,
		name:     "Player",
		state:    NewGameState(),
		chat:     newChatLog(opts.ChatHistory),
		metrics:  &SessionMetrics{},
		inbound:  make(chan inboundEvent, opts.InboundQueue),
		priority: make(chan protocol.ClientEnvelope, opts.PriorityCap),
		done:     make(chan struct{}),
	}
}

// SetName 设置握手时申报的展示名；需在 Start 之前调用，空串回退为 "Player"。
// 服务端冲突改名后以初始快照回传的身份为准。
func (s *Session) SetName(name string) {
	if name == "" {
		name = "Player"
	}
	s.name = name
}

// Start 以有界超时建立连接并启动收发协程。
// 连接失败时记录连接错误并返回；不启动任何后台工作，也不重试。
func (s *Session) Start(addr string) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session already started")
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	dialer := websocket.Dialer{HandshakeTimeout: s.opts.DialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		msg := fmt.Sprintf("connect %s: %v", addr, err)
		s.log.Warnf("session: %s", msg)
		s.state.setConnErr(msg)
		return errors.New(msg)
	}
	s.conn = conn
	s.log.Infof("session: connected to %s as '%s'", addr, s.name)

	s.pumps.Add(2)
	go s.writePump()
	go s.readPump()
	return nil
}

// Stop 幂等的协作停止：发出停止信号、关闭底层连接以解除读阻塞，
// 并在有界时限内等待收发协程退出。未成功 Start 过的会话调用也安全。
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.signalDone()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		if !waitTimeout(&s.pumps, s.opts.StopJoinWait) {
			s.log.Warnf("session: pumps did not exit within %v", s.opts.StopJoinWait)
		}
		s.log.Infof("session: stopped")
	})
}

// SetIntent 更新当前意图方向；出站节拍会重采样，不需要逐次投递
func (s *Session) SetIntent(d protocol.Direction) {
	s.dir.Store(int32(d))
}

// SendChat 将聊天文本投递到优先通道。握手未完成或文本为空时为无操作；
// 优先消息按提交顺序发送，每个节拍至多一条。
func (s *Session) SendChat(text string) {
	if text == "" || !s.ready.Load() {
		return
	}
	env := protocol.ClientEnvelope{Chat: &protocol.ChatSend{Text: text}}
	select {
	case s.priority <- env:
	default:
		s.metrics.incPriorityDropped()
	}
}

// Poll 由应用在自身帧节拍中调用：排空入站队列，
// 按到达顺序把快照/增量应用到状态、把聊天写入历史。非阻塞。
func (s *Session) Poll() {
	for {
		select {
		case ev := <-s.inbound:
			switch ev.kind {
			case protocol.KindMap:
				s.state.SetInitialMap(ev.env.Map)
			case protocol.KindDelta:
				s.state.ApplyDelta(ev.env.Delta)
			case protocol.KindChat:
				s.chat.add(ev.env.Chat.From, ev.env.Chat.Text)
			}
		default:
			return
		}
	}
}

// WaitReady 轮询直至初始快照到达（本地玩家 id 可用）。
// 超时或会话终止时返回 false。
func (s *Session) WaitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s.Poll()
		if s.state.LocalID() != "" {
			return true
		}
		select {
		case <-s.done:
			// 终止前可能还有已入队的快照，再排空一次
			s.Poll()
			return s.state.LocalID() != ""
		case <-time.After(20 * time.Millisecond):
		}
	}
	return false
}

// Snapshot 见 GameState.Snapshot
func (s *Session) Snapshot() (map[string]protocol.Player, map[string]Color, string) {
	return s.state.Snapshot()
}

// MapData 见 GameState.MapData
func (s *Session) MapData() *MapData {
	return s.state.MapData()
}

// ChatHistory 返回聊天历史的有序拷贝（旧在前）
func (s *Session) ChatHistory() []ChatMessage {
	return s.chat.history()
}

// ConnErr 返回连接错误描述；空串表示没有错误。
// 一旦非空，应用应停止发送并展示错误，核心不做静默重连。
func (s *Session) ConnErr() string {
	return s.state.ConnErr()
}

// Done 返回会话终止信号，应用轮询循环可用它感知传输层故障
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Metrics 返回会话指标
func (s *Session) Metrics() *SessionMetrics {
	return s.metrics
}

// fail 把传输层故障折叠为连接错误并发出终止信号；主动停止路径不上报
func (s *Session) fail(format string, args ...any) {
	if s.stopped.Load() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	s.log.Warnf("session: %s", msg)
	s.state.setConnErr(msg)
	s.signalDone()
	if s.conn != nil {
		// 关闭连接以解除另一侧泵的阻塞
		_ = s.conn.Close()
	}
}

func (s *Session) signalDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// waitTimeout 带上限地等待 WaitGroup，超时返回 false
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}
