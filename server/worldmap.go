package server

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gridwalk/logging"
	"gridwalk/protocol"
)

// 瓦片类型：0 可走，1 墙体；未知 id 按可走处理
const (
	TileEmpty int32 = 0
	TileWall  int32 = 1
)

// WorldMap 静态地图网格；加载后不再变更，可被多协程无锁读取
type WorldMap struct {
	Tiles      [][]int32
	Width      int // 宽（瓦片数）
	Height     int // 高（瓦片数）
	TileSizePx int
}

// LoadWorldMap 从文本文件读取地图：每行空格分隔的瓦片 id，各行等宽
func LoadWorldMap(path string, tileSizePx int) (*WorldMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map file '%s': %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var tiles [][]int32
	width := -1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if width == -1 {
			width = len(parts)
		} else if len(parts) != width {
			return nil, fmt.Errorf("inconsistent row length in '%s' (expected %d, got %d)", path, width, len(parts))
		}
		row := make([]int32, width)
		for i, part := range parts {
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid tile id '%s' in '%s': %w", part, path, err)
			}
			id := int32(v)
			if id != TileEmpty && id != TileWall {
				logging.Log.Warnf("map: unknown tile id %d at row %d col %d, treating as empty", id, len(tiles), i)
				id = TileEmpty
			}
			row[i] = id
		}
		tiles = append(tiles, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read map file '%s': %w", path, err)
	}
	if len(tiles) == 0 || width <= 0 {
		return nil, fmt.Errorf("map file '%s' is empty or invalid", path)
	}
	return &WorldMap{Tiles: tiles, Width: width, Height: len(tiles), TileSizePx: tileSizePx}, nil
}

// DefaultWorldMap 内置地图：20x15，四周一圈墙
func DefaultWorldMap(tileSizePx int) *WorldMap {
	const w, h = 20, 15
	tiles := make([][]int32, h)
	for y := 0; y < h; y++ {
		row := make([]int32, w)
		for x := 0; x < w; x++ {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				row[x] = TileWall
			}
		}
		tiles[y] = row
	}
	return &WorldMap{Tiles: tiles, Width: w, Height: h, TileSizePx: tileSizePx}
}

// NewWorldMapFromTiles 由给定网格构造地图（测试用）
func NewWorldMapFromTiles(tiles [][]int32, tileSizePx int) *WorldMap {
	w := 0
	if len(tiles) > 0 {
		w = len(tiles[0])
	}
	return &WorldMap{Tiles: tiles, Width: w, Height: len(tiles), TileSizePx: tileSizePx}
}

// PixelWidth 世界宽度（像素）
func (m *WorldMap) PixelWidth() float32 {
	return float32(m.Width * m.TileSizePx)
}

// PixelHeight 世界高度（像素）
func (m *WorldMap) PixelHeight() float32 {
	return float32(m.Height * m.TileSizePx)
}

// IsWall 判断瓦片坐标是否不可通行；越界按墙处理
func (m *WorldMap) IsWall(tx, ty int) bool {
	if tx < 0 || tx >= m.Width || ty < 0 || ty >= m.Height {
		return true
	}
	return m.Tiles[ty][tx] == TileWall
}

// InitialMapData 构造发给新连接的全量快照（携带分配到的玩家 id）
func (m *WorldMap) InitialMapData(assignedID string) *protocol.InitialMapData {
	rows := make([]protocol.MapRow, m.Height)
	for y, row := range m.Tiles {
		rows[y] = protocol.MapRow{Tiles: append([]int32(nil), row...)}
	}
	return &protocol.InitialMapData{
		Rows:          rows,
		TileWidth:     int32(m.Width),
		TileHeight:    int32(m.Height),
		TileSizePx:    int32(m.TileSizePx),
		WorldWidthPx:  m.PixelWidth(),
		WorldHeightPx: m.PixelHeight(),
		PlayerID:      assignedID,
	}
}
