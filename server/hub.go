package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gridwalk/logging"
	"gridwalk/protocol"
)

// remoteClient 一条完成握手的客户端连接的发送端包装；
// 写由独立协程负责，入队非阻塞、满则丢弃，保证广播不被慢连接拖住
type remoteClient struct {
	id   string
	name string
	ws   *websocket.Conn

	send      chan []byte
	quit      chan struct{}
	closeOnce sync.Once
}

func newRemoteClient(id, name string, ws *websocket.Conn) *remoteClient {
	return &remoteClient{
		id:   id,
		name: name,
		ws:   ws,
		send: make(chan []byte, 64),
		quit: make(chan struct{}),
	}
}

// enqueue 将消息压入发送队列；队列满返回 false（消息被丢弃）
func (c *remoteClient) enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// writePump 独立协程，从 send 队列写出到 WS
func (c *remoteClient) writePump() {
	defer c.ws.Close()
	for {
		select {
		case <-c.quit:
			return
		case b := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

// close 幂等关闭：通知写协程退出并关闭底层连接
func (c *remoteClient) close() {
	c.closeOnce.Do(func() {
		close(c.quit)
		_ = c.ws.Close()
	})
}

// Hub 连接注册表与广播中心：持有权威状态、指标与配置，
// 所有下行消息都经由此处编组并分发
type Hub struct {
	cfg     Config
	state   *State
	world   *WorldMap
	metrics *HubMetrics

	mu      sync.Mutex
	clients map[string]*remoteClient

	tickOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHub 按配置构造中心：加载地图文件（未配置则用内置地图）并初始化世界
func NewHub(cfg Config) (*Hub, error) {
	cfg = cfg.withDefaults()
	var world *WorldMap
	if cfg.MapFile != "" {
		w, err := LoadWorldMap(cfg.MapFile, cfg.TileSizePx)
		if err != nil {
			return nil, err
		}
		world = w
	} else {
		world = DefaultWorldMap(cfg.TileSizePx)
	}
	return NewHubWithMap(cfg, world), nil
}

// NewHubWithMap 用给定地图构造中心（测试用）
func NewHubWithMap(cfg Config, world *WorldMap) *Hub {
	cfg = cfg.withDefaults()
	return &Hub{
		cfg:     cfg,
		state:   NewState(world, cfg.MoveStep),
		world:   world,
		metrics: &HubMetrics{},
		clients: make(map[string]*remoteClient),
		stop:    make(chan struct{}),
	}
}

// State 返回权威状态（/admin 与测试用）
func (h *Hub) State() *State {
	return h.state
}

// Metrics 返回运行指标
func (h *Hub) Metrics() *HubMetrics {
	return h.metrics
}

func (h *Hub) register(c *remoteClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	logging.Log.Infof("hub: stream added for %s ('%s'), total=%d", c.id, c.name, len(h.clients))
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		c.close()
		delete(h.clients, id)
		logging.Log.Infof("hub: stream removed for %s, total=%d", id, len(h.clients))
	}
}

// broadcast 编组一次、投递到所有连接；慢连接丢弃计入指标
func (h *Hub) broadcast(env *protocol.ServerEnvelope) {
	b, err := json.Marshal(env)
	if err != nil {
		logging.Log.Errorf("hub: marshal broadcast: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if !c.enqueue(b) {
			h.metrics.IncSendDropped()
		}
	}
}

// broadcastDelta 有变更才广播本 Tick 的增量
func (h *Hub) broadcastDelta() {
	delta, changed := h.state.DeltaSince()
	if !changed {
		return
	}
	h.broadcast(&protocol.ServerEnvelope{Delta: delta})
	h.metrics.IncDeltasSent()
}

// broadcastChat 把一条聊天扇出给所有在线玩家
func (h *Hub) broadcastChat(from, text string) {
	h.broadcast(&protocol.ServerEnvelope{Chat: &protocol.ChatBroadcast{From: from, Text: text}})
	h.metrics.IncChatsBroadcast()
	logging.Log.Infof("hub: chat from '%s': %s", from, text)
}

// sendTo 定向发送（初始快照与初始增量走这里）
func (h *Hub) sendTo(c *remoteClient, env *protocol.ServerEnvelope) {
	b, err := json.Marshal(env)
	if err != nil {
		logging.Log.Errorf("hub: marshal: %v", err)
		return
	}
	if !c.enqueue(b) {
		h.metrics.IncSendDropped()
	}
}

// Close 停止 Tick 循环并关闭全部连接
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}
