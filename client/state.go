package client

import (
	"sync"

	"gridwalk/protocol"
)

// Color 实体的展示色（RGB），首次见到某 id 时从调色盘轮询分配
type Color struct {
	R, G, B uint8
}

// palette 固定六色调色盘；索引单调递增、取模回绕，移除后不回收
var palette = []Color{
	{255, 255, 0},
	{0, 255, 255},
	{255, 0, 255},
	{0, 255, 0},
	{255, 165, 0},
	{255, 255, 255},
}

// defaultColor 未分配 id 的兜底色
var defaultColor = Color{255, 255, 255}

// MapData 全量快照得到的地图描述；设置后只会被下一次全量快照整体替换
type MapData struct {
	Tiles         [][]int32
	TileWidth     int
	TileHeight    int
	TileSizePx    int
	WorldWidthPx  float32
	WorldHeightPx float32
}

// GameState 客户端侧共享状态：实体表、配色表与地图描述。
// 三把锁各管各的关注点；实体与配色需要同时变更时固定 state→color 的加锁顺序。
// 跨协程读取一律走快照访问器，调用方不会拿到内部结构的别名。
type GameState struct {
	stateMu sync.Mutex
	players map[string]protocol.Player
	localID string
	connErr string

	mapMu   sync.Mutex
	mapData *MapData

	colorMu   sync.Mutex
	colors    map[string]Color
	nextColor int
}

func NewGameState() *GameState {
	return &GameState{
		players: make(map[string]protocol.Player),
		colors:  make(map[string]Color),
	}
}

// ApplyDelta 在同一个临界区内应用一批增量：先移除（实体与配色同时删），
// 再 upsert（整体替换，新 id 轮询配色）。同批中被移除又被 upsert 的 id
// 最终存活——重加赢过移除。
func (g *GameState) ApplyDelta(d *protocol.DeltaUpdate) {
	if d == nil {
		return
	}
	g.stateMu.Lock()
	g.colorMu.Lock()
	defer g.colorMu.Unlock()
	defer g.stateMu.Unlock()

	for _, id := range d.Removed {
		delete(g.players, id)
		delete(g.colors, id)
	}
	for _, p := range d.Players {
		g.players[p.ID] = p
		if _, ok := g.colors[p.ID]; !ok {
			g.colors[p.ID] = palette[g.nextColor%len(palette)]
			g.nextColor++
		}
	}
}

// SetInitialMap 整体替换地图描述并记录分配到的本地玩家 id。
// 重连场景下的第二次调用同样整体替换，不做合并。缺行按零瓦片补齐。
func (g *GameState) SetInitialMap(m *protocol.InitialMapData) {
	if m == nil {
		return
	}
	w, h := int(m.TileWidth), int(m.TileHeight)
	tiles := make([][]int32, 0, h)
	for y := 0; y < h; y++ {
		row := make([]int32, w)
		if y < len(m.Rows) {
			copy(row, m.Rows[y].Tiles)
		}
		tiles = append(tiles, row)
	}

	g.mapMu.Lock()
	g.mapData = &MapData{
		Tiles:         tiles,
		TileWidth:     w,
		TileHeight:    h,
		TileSizePx:    int(m.TileSizePx),
		WorldWidthPx:  m.WorldWidthPx,
		WorldHeightPx: m.WorldHeightPx,
	}
	g.mapMu.Unlock()

	g.stateMu.Lock()
	g.localID = m.PlayerID
	g.stateMu.Unlock()
}

// Snapshot 返回实体表与配色表的拷贝及本地玩家 id；
// 读取不会观察到半应用的增量（实体与配色的键集一致）
func (g *GameState) Snapshot() (map[string]protocol.Player, map[string]Color, string) {
	g.stateMu.Lock()
	g.colorMu.Lock()
	defer g.colorMu.Unlock()
	defer g.stateMu.Unlock()

	players := make(map[string]protocol.Player, len(g.players))
	for id, p := range g.players {
		players[id] = p
	}
	colors := make(map[string]Color, len(g.colors))
	for id, c := range g.colors {
		colors[id] = c
	}
	return players, colors, g.localID
}

// MapData 返回地图描述的拷贝；尚未收到全量快照时返回 nil
func (g *GameState) MapData() *MapData {
	g.mapMu.Lock()
	defer g.mapMu.Unlock()
	if g.mapData == nil {
		return nil
	}
	cp := *g.mapData
	cp.Tiles = make([][]int32, len(g.mapData.Tiles))
	for y, row := range g.mapData.Tiles {
		cp.Tiles[y] = append([]int32(nil), row...)
	}
	return &cp
}

// LocalID 返回服务端分配的本地玩家 id；初始快照到达前为空
func (g *GameState) LocalID() string {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	return g.localID
}

// ColorOf 返回某 id 的配色；未分配时返回兜底白色
func (g *GameState) ColorOf(id string) Color {
	g.colorMu.Lock()
	defer g.colorMu.Unlock()
	if c, ok := g.colors[id]; ok {
		return c
	}
	return defaultColor
}

// setConnErr 记录连接错误；核心不向应用抛异常，统一经此状态面暴露
func (g *GameState) setConnErr(msg string) {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	g.connErr = msg
}

// ConnErr 返回连接错误描述，空串表示没有错误
func (g *GameState) ConnErr() string {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	return g.connErr
}
