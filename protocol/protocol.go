// Package protocol 定义客户端与服务端之间的线上消息格式。
// 两类信封均为 oneof 式标签联合：每条消息有且只有一个变体被填充，
// 接收方按“哪个变体存在”分发；没有可识别变体的信封视为空操作而非错误。
package protocol

import "fmt"

// Direction 客户端移动意图（离散方向，按设计不支持斜向）
type Direction int32

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int32(d))
	}
}

// AnimState 服务端下发的动画/朝向状态
type AnimState int32

const (
	AnimUnknown AnimState = iota
	AnimIdle
	AnimRunUp
	AnimRunDown
	AnimRunLeft
	AnimRunRight
)

func (a AnimState) String() string {
	switch a {
	case AnimIdle:
		return "idle"
	case AnimRunUp:
		return "run_up"
	case AnimRunDown:
		return "run_down"
	case AnimRunLeft:
		return "run_left"
	case AnimRunRight:
		return "run_right"
	default:
		return "unknown"
	}
}

// Player 服务器权威的玩家实体；客户端对每个 id 持有缓存副本，
// 每次 upsert 整体替换，不做字段级合并
type Player struct {
	ID   string    `json:"id"`
	X    float32   `json:"x"`
	Y    float32   `json:"y"`
	Anim AnimState `json:"anim"`
	Name string    `json:"name,omitempty"`
}

// Hello 握手首包：期望的展示名（服务端冲突时可改名，
// 客户端以初始快照回传的身份为准）
type Hello struct {
	Name string `json:"name"`
}

// PlayerInput 当前意图方向，每个发送节拍重采样重发（兼作保活）
type PlayerInput struct {
	Dir Direction `json:"dir"`
}

// ChatSend 客户端发起的聊天请求
type ChatSend struct {
	Text string `json:"text"`
}

// MapRow 地图单行的瓦片 id 序列
type MapRow struct {
	Tiles []int32 `json:"tiles"`
}

// InitialMapData 每会话恰好一次的全量快照：地图描述与分配到的本地玩家 id
type InitialMapData struct {
	Rows          []MapRow `json:"rows"`
	TileWidth     int32    `json:"tile_w"`
	TileHeight    int32    `json:"tile_h"`
	TileSizePx    int32    `json:"tile_size_px"`
	WorldWidthPx  float32  `json:"world_w_px"`
	WorldHeightPx float32  `json:"world_h_px"`
	PlayerID      string   `json:"player_id"`
}

// DeltaUpdate 增量变更集：先处理移除，再处理 upsert
// （同一批中同时出现的 id 以 upsert 为准）
type DeltaUpdate struct {
	Removed []string `json:"removed,omitempty"`
	Players []Player `json:"players,omitempty"`
}

// ChatBroadcast 服务端广播的聊天消息；接收时间戳由客户端本地打戳，不走线上
type ChatBroadcast struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// ClientEnvelope 客户端信封：hello / input / chat 三选一
type ClientEnvelope struct {
	Hello *Hello       `json:"hello,omitempty"`
	Input *PlayerInput `json:"input,omitempty"`
	Chat  *ChatSend    `json:"chat,omitempty"`
}

// ServerEnvelope 服务端信封：map / delta / chat 三选一
type ServerEnvelope struct {
	Map   *InitialMapData `json:"map,omitempty"`
	Delta *DeltaUpdate    `json:"delta,omitempty"`
	Chat  *ChatBroadcast  `json:"chat,omitempty"`
}

// Kind 标识服务端信封中实际填充的变体，入站队列以 (kind, payload) 分发
type Kind int

const (
	KindNone Kind = iota
	KindMap
	KindDelta
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindDelta:
		return "delta"
	case KindChat:
		return "chat"
	default:
		return "none"
	}
}

// Kind 返回信封中填充的变体；都为空时返回 KindNone（前向兼容忽略）
func (e *ServerEnvelope) Kind() Kind {
	switch {
	case e.Map != nil:
		return KindMap
	case e.Delta != nil:
		return KindDelta
	case e.Chat != nil:
		return KindChat
	default:
		return KindNone
	}
}

// Valid 报告客户端信封是否恰好填充了一个变体
func (e *ClientEnvelope) Valid() bool {
	n := 0
	if e.Hello != nil {
		n++
	}
	if e.Input != nil {
		n++
	}
	if e.Chat != nil {
		n++
	}
	return n == 1
}
