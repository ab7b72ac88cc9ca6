package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridwalk/logging"
	"gridwalk/protocol"
)

const (
	helloWait    = 5 * time.Second  // 等待首包 hello 的时限
	readIdleWait = 60 * time.Second // 两次入站消息之间的最大间隔
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：升级连接，等待首包 hello 完成握手，
// 下发全量地图快照与初始增量后进入读循环
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Log.Warnf("ws: upgrade error: %v", err)
		return
	}

	// 首包必须是 hello，否则拒绝连接
	_ = ws.SetReadDeadline(time.Now().Add(helloWait))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		logging.Log.Warnf("ws: closed before hello: %v", err)
		_ = ws.Close()
		return
	}
	var first protocol.ClientEnvelope
	if err := json.Unmarshal(payload, &first); err != nil || first.Hello == nil {
		logging.Log.Warnf("ws: first message was not hello, rejecting")
		_ = ws.Close()
		return
	}

	id := uuid.NewString()
	name := h.state.UniqueName(first.Hello.Name)
	if name != first.Hello.Name {
		logging.Log.Infof("ws: desired name '%s' taken, assigned '%s'", first.Hello.Name, name)
	}

	// 出生点：世界中心附近错开一个瓦片，避免新玩家完全重叠
	offset := float32(h.state.PlayerCount()%5) * float32(h.world.TileSizePx)
	spawnX := h.world.PixelWidth()/2 + offset
	spawnY := h.world.PixelHeight() / 2
	h.state.AddPlayer(id, name, spawnX, spawnY)

	client := newRemoteClient(id, name, ws)
	h.register(client)
	go client.writePump()

	// 先发带分配 id 的全量快照，再发现有玩家的初始增量
	h.sendTo(client, &protocol.ServerEnvelope{Map: h.world.InitialMapData(id)})
	if full := h.state.FullDelta(); len(full.Players) > 0 {
		h.sendTo(client, &protocol.ServerEnvelope{Delta: full})
	}
	logging.Log.Infof("ws: player %s ('%s') connected", id, name)

	h.readLoop(client)
}

// readLoop 持续读取客户端信封并按变体分发；
// 退出时移除玩家并让离场体现在下一次增量广播中
func (h *Hub) readLoop(c *remoteClient) {
	defer func() {
		h.state.RemovePlayer(c.id)
		h.unregister(c.id)
		logging.Log.Infof("ws: player %s ('%s') disconnected", c.id, c.name)
	}()

	c.ws.SetReadLimit(1 << 20) // 1MB
	for {
		_ = c.ws.SetReadDeadline(time.Now().Add(readIdleWait))
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env protocol.ClientEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			h.metrics.IncUnknownDropped()
			continue
		}
		switch {
		case env.Input != nil:
			if h.state.ApplyInput(c.id, env.Input.Dir) {
				h.metrics.IncInputsApplied()
			}
		case env.Chat != nil:
			text := strings.TrimSpace(env.Chat.Text)
			if text == "" || len(text) > h.cfg.MaxChatLen {
				h.metrics.IncChatRejected()
				continue
			}
			h.broadcastChat(c.name, text)
		case env.Hello != nil:
			logging.Log.Warnf("ws: player %s sent duplicate hello, ignoring", c.id)
		default:
			// 前向兼容：没有可识别变体的信封按空操作处理
			h.metrics.IncUnknownDropped()
		}
	}
}
