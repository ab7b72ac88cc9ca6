package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gridwalk/client"
	"gridwalk/protocol"
	"gridwalk/server"
)

// newTestHub 起一个使用开放地图的完整服务端（高 Tick 频率，测试收敛快）
func newTestHub(t *testing.T) (*server.Hub, string) {
	t.Helper()
	tiles := make([][]int32, 10)
	for y := range tiles {
		tiles[y] = make([]int32, 10)
	}
	hub := server.NewHubWithMap(server.Config{TickRate: 100}, server.NewWorldMapFromTiles(tiles, 32))
	hub.StartTicker()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.HandleFunc("/admin/config", hub.HandleAdminConfig)
	mux.HandleFunc("/metrics", hub.HandleMetrics)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		ts.Close()
		hub.Close()
	})
	return hub, strings.TrimPrefix(ts.URL, "http://")
}

func startClient(t *testing.T, addr, name string) *client.Session {
	t.Helper()
	s := client.New(client.Options{SendInterval: 5 * time.Millisecond})
	s.SetName(name)
	if err := s.Start(addr); err != nil {
		t.Fatalf("start client %s: %v", name, err)
	}
	t.Cleanup(s.Stop)
	if !s.WaitReady(3 * time.Second) {
		t.Fatalf("client %s: initial snapshot never arrived", name)
	}
	return s
}

// waitUntil 轮询会话状态直到条件满足
func waitUntil(t *testing.T, s *client.Session, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		s.Poll()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestJoinAndMove(t *testing.T) {
	_, addr := newTestHub(t)
	a := startClient(t, addr, "alice")

	m := a.MapData()
	if m == nil || m.TileWidth != 10 || m.TileHeight != 10 || m.TileSizePx != 32 {
		t.Fatalf("unexpected map: %+v", m)
	}
	_, _, localID := a.Snapshot()
	if localID == "" {
		t.Fatal("no assigned player id")
	}

	// 自己出现在实体表中
	waitUntil(t, a, "self entity", func() bool {
		players, _, _ := a.Snapshot()
		_, ok := players[localID]
		return ok
	})
	players, _, _ := a.Snapshot()
	startY := players[localID].Y

	a.SetIntent(protocol.DirDown)
	waitUntil(t, a, "downward movement", func() bool {
		players, _, _ := a.Snapshot()
		return players[localID].Y > startY
	})
	a.SetIntent(protocol.DirNone)

	waitUntil(t, a, "idle anim", func() bool {
		players, _, _ := a.Snapshot()
		return players[localID].Anim == protocol.AnimIdle
	})
}

func TestTwoClients_RenameChatAndLeave(t *testing.T) {
	_, addr := newTestHub(t)
	a := startClient(t, addr, "dup")
	b := startClient(t, addr, "dup")

	// 双方都看见两名玩家；后来者被改名
	for _, s := range []*client.Session{a, b} {
		waitUntil(t, s, "two players", func() bool {
			players, _, _ := s.Snapshot()
			return len(players) == 2
		})
	}
	players, _, _ := a.Snapshot()
	names := map[string]bool{}
	for _, p := range players {
		names[p.Name] = true
	}
	if !names["dup"] || !names["dup_2"] {
		t.Fatalf("names = %v, want dup and dup_2", names)
	}

	// 聊天经服务端扇出到双方
	b.SendChat("hello everyone")
	for _, s := range []*client.Session{a, b} {
		waitUntil(t, s, "chat broadcast", func() bool {
			h := s.ChatHistory()
			return len(h) == 1 && h[0].Text == "hello everyone" && h[0].From == "dup_2"
		})
	}

	// b 离场后 a 收到移除增量
	b.Stop()
	waitUntil(t, a, "peer removal", func() bool {
		players, _, _ := a.Snapshot()
		return len(players) == 1
	})
}

func TestChatRejection(t *testing.T) {
	hub, addr := newTestHub(t)
	a := startClient(t, addr, "alice")

	a.SendChat("   ")                            // 纯空白
	a.SendChat(strings.Repeat("x", 500))         // 超长
	a.SendChat("ok")                             // 合法
	waitUntil(t, a, "valid chat only", func() bool {
		h := a.ChatHistory()
		return len(h) == 1 && h[0].Text == "ok"
	})
	if n := hub.Metrics().Snapshot()["chat_rejected"].(int64); n != 2 {
		t.Fatalf("chat_rejected = %d, want 2", n)
	}
}

// 首包不是 hello 的连接被直接拒绝
func TestHelloFirstEnforced(t *testing.T) {
	_, addr := newTestHub(t)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.ClientEnvelope{
		Input: &protocol.PlayerInput{Dir: protocol.DirUp},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("server kept talking to a connection that skipped hello")
	}
}

func TestAdminConfigHotUpdate(t *testing.T) {
	hub, addr := newTestHub(t)
	base := "http://" + addr + "/admin/config"

	resp, err := http.Post(base, "application/json", strings.NewReader(`{"moveStep": 8}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status = %d", resp.StatusCode)
	}
	if got := hub.State().Step(); got != 8 {
		t.Fatalf("step = %v after update, want 8", got)
	}

	resp, err = http.Get(base)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		MoveStep *float32 `json:"moveStep"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.MoveStep == nil || *body.MoveStep != 8 {
		t.Fatalf("GET reported step %v, want 8", body.MoveStep)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, addr := newTestHub(t)
	startClient(t, addr, "alice")

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Players int            `json:"players"`
		Metrics map[string]any `json:"metrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Players != 1 {
		t.Fatalf("players = %d, want 1", body.Players)
	}
	if _, ok := body.Metrics["deltas_sent"]; !ok {
		t.Fatal("metrics payload missing deltas_sent")
	}
}
