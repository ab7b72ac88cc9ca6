package server

import (
	"fmt"
	"sync"

	"gridwalk/logging"
	"gridwalk/protocol"
)

// trackedPlayer 权威玩家状态及其输入跟踪信息
type trackedPlayer struct {
	player  protocol.Player
	lastDir protocol.Direction
	dirty   bool // 自上次广播以来是否有变更
}

// State 权威世界状态：玩家表 + 静态地图。
// 单把互斥锁保护玩家表；地图加载后只读，不需要锁。
type State struct {
	mu      sync.Mutex
	players map[string]*trackedPlayer
	removed map[string]struct{} // 自上次广播以来离场的玩家 id

	world *WorldMap
	step  float32
	// 玩家 AABB 碰撞半宽/半高
	halfW float32
	halfH float32
}

// NewState 创建世界状态；碰撞盒略小于一个瓦片，保证能走过单格通道
func NewState(world *WorldMap, step float32) *State {
	half := float32(world.TileSizePx)/2 - 2
	if half < 1 {
		half = 1
	}
	return &State{
		players: make(map[string]*trackedPlayer),
		removed: make(map[string]struct{}),
		world:   world,
		step:    step,
		halfW:   half,
		halfH:   half,
	}
}

// World 返回静态地图
func (s *State) World() *WorldMap {
	return s.world
}

// Step 当前移动步长
func (s *State) Step() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetStep 热更新移动步长（/admin/config）
func (s *State) SetStep(v float32) {
	if v <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = v
}

// UniqueName 把期望展示名解析为未被占用的名字：
// 空名回退 "AnonPlayer"，冲突时追加数字后缀
func (s *State) UniqueName(desired string) string {
	if desired == "" {
		desired = "AnonPlayer"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := make(map[string]struct{}, len(s.players))
	for _, tp := range s.players {
		taken[tp.player.Name] = struct{}{}
	}
	if _, ok := taken[desired]; !ok {
		return desired
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", desired, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// AddPlayer 加入玩家；出生点裁剪到世界边界内，初始为 idle
func (s *State) AddPlayer(id, name string, x, y float32) protocol.Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	x = clamp(x, s.halfW, s.world.PixelWidth()-s.halfW)
	y = clamp(y, s.halfH, s.world.PixelHeight()-s.halfH)
	tp := &trackedPlayer{
		player: protocol.Player{
			ID:   id,
			X:    x,
			Y:    y,
			Anim: protocol.AnimIdle,
			Name: name,
		},
		lastDir: protocol.DirNone,
		dirty:   true,
	}
	s.players[id] = tp
	delete(s.removed, id) // 同 id 重入赢过此前的离场记录
	logging.Log.Infof("state: player %s ('%s') added at (%.1f, %.1f)", id, name, x, y)
	return tp.player
}

// RemovePlayer 移除玩家并记入下一次广播的移除列表
func (s *State) RemovePlayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return
	}
	delete(s.players, id)
	s.removed[id] = struct{}{}
	logging.Log.Infof("state: player %s removed", id)
}

// ApplyInput 按意图方向推进一步：世界边界裁剪、墙体与玩家 AABB 碰撞检测。
// 即使移动被阻挡，动画仍反映意图方向；DirNone 归于 idle。
// 返回是否找到该玩家。
func (s *State) ApplyInput(id string, dir protocol.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tp, ok := s.players[id]
	if !ok {
		return false
	}
	tp.lastDir = dir

	x, y := tp.player.X, tp.player.Y
	px, py := x, y
	if dir != protocol.DirNone {
		switch dir {
		case protocol.DirUp:
			py -= s.step
		case protocol.DirDown:
			py += s.step
		case protocol.DirLeft:
			px -= s.step
		case protocol.DirRight:
			px += s.step
		}
		px = clamp(px, s.halfW, s.world.PixelWidth()-s.halfW)
		py = clamp(py, s.halfH, s.world.PixelHeight()-s.halfH)
		if s.collidesMap(px, py) || s.collidesPlayer(id, px, py) {
			px, py = x, y // 移动被阻挡，位置不变
		}
	}

	anim := animFor(dir)
	if tp.player.X != px || tp.player.Y != py || tp.player.Anim != anim {
		tp.player.X = px
		tp.player.Y = py
		tp.player.Anim = anim
		tp.dirty = true
	}
	return true
}

// DeltaSince 收集自上次调用以来的变更（脏玩家 + 离场者）并清零标记。
// 没有任何变更时返回 (nil, false)。
func (s *State) DeltaSince() (*protocol.DeltaUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := &protocol.DeltaUpdate{}
	for id := range s.removed {
		delta.Removed = append(delta.Removed, id)
	}
	s.removed = make(map[string]struct{})
	for _, tp := range s.players {
		if tp.dirty {
			delta.Players = append(delta.Players, tp.player)
			tp.dirty = false
		}
	}
	if len(delta.Removed) == 0 && len(delta.Players) == 0 {
		return nil, false
	}
	return delta, true
}

// FullDelta 以增量形式返回当前全部玩家（发给新连接的初始状态）
func (s *State) FullDelta() *protocol.DeltaUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := &protocol.DeltaUpdate{}
	for _, tp := range s.players {
		delta.Players = append(delta.Players, tp.player)
	}
	return delta
}

// PlayerCount 当前在线玩家数
func (s *State) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// GetPlayer 返回玩家数据的拷贝
func (s *State) GetPlayer(id string) (protocol.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.players[id]
	if !ok {
		return protocol.Player{}, false
	}
	return tp.player, true
}

// collidesMap 玩家包围盒是否压到墙体瓦片（调用方持锁）
func (s *State) collidesMap(cx, cy float32) bool {
	const epsilon = 0.001
	ts := float32(s.world.TileSizePx)
	minX, maxX := cx-s.halfW, cx+s.halfW
	minY, maxY := cy-s.halfH, cy+s.halfH
	startTX, endTX := int(minX/ts), int((maxX-epsilon)/ts)
	startTY, endTY := int(minY/ts), int((maxY-epsilon)/ts)
	for ty := startTY; ty <= endTY; ty++ {
		for tx := startTX; tx <= endTX; tx++ {
			if s.world.IsWall(tx, ty) {
				return true
			}
		}
	}
	return false
}

// collidesPlayer 标准 AABB 重叠检测，跳过自身（调用方持锁）
func (s *State) collidesPlayer(id string, cx, cy float32) bool {
	left, right := cx-s.halfW, cx+s.halfW
	top, bottom := cy-s.halfH, cy+s.halfH
	for otherID, other := range s.players {
		if otherID == id {
			continue
		}
		ox, oy := other.player.X, other.player.Y
		if left < ox+s.halfW && right > ox-s.halfW &&
			top < oy+s.halfH && bottom > oy-s.halfH {
			return true
		}
	}
	return false
}

func animFor(dir protocol.Direction) protocol.AnimState {
	switch dir {
	case protocol.DirUp:
		return protocol.AnimRunUp
	case protocol.DirDown:
		return protocol.AnimRunDown
	case protocol.DirLeft:
		return protocol.AnimRunLeft
	case protocol.DirRight:
		return protocol.AnimRunRight
	default:
		return protocol.AnimIdle
	}
}

// clamp 将值限制在 [min, max] 区间
func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
