// Package dungeon is the procedural world-generation collaborator the core
// treats as opaque: it consumes (seed, width, height) and returns the
// derived geography rows a World owns (Regions, Tiles, Structures, Rivers).
// The core never recomputes this data, only persists and re-serves it.
//
// The room/corridor carving in this file is adapted from the teacher's
// roguelike level generator (originally producing a player-spawn dungeon
// for a real-time client); here it produces the spec's opaque World rows
// instead of ECS entities, using a seeded math/rand.Rand rather than a
// process-global seed so generation is reproducible for a given seed.
package dungeon

import (
	"fmt"
	"math/rand"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

const (
	minRoomSize = 4
	maxRoomSize = 10
)

// Rect is a candidate room footprint during carving.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.W && r.X+r.W >= other.X &&
		r.Y <= other.Y+other.H && r.Y+r.H >= other.Y
}

// Generated holds every row a freshly generated World owns.
type Generated struct {
	Regions    []model.Region
	Tiles      []model.Tile
	Structures []model.Structure
	Rivers     []model.River
}

// Generate deterministically derives a dungeon layout from (seed, width,
// height): carved rooms become Regions, every grid cell becomes a Tile
// tagged wall/floor, room-connecting corridors are recorded as a River for
// flavor, and the entry/exit rooms become Structures.
func Generate(worldID string, seed int64, width, height int) Generated {
	rng := rand.New(rand.NewSource(seed))

	grid := make([][]bool, height) // true = wall
	for y := range grid {
		grid[y] = make([]bool, width)
		for x := range grid[y] {
			grid[y][x] = true
		}
	}

	maxRooms := (width * height) / 150
	if maxRooms < 4 {
		maxRooms = 4
	}

	var rooms []Rect
	var riverCells [][2]int
	for i := 0; i < maxRooms; i++ {
		w := randRange(rng, minRoomSize, maxRoomSize)
		h := randRange(rng, minRoomSize, maxRoomSize)
		if width-w-2 < 1 || height-h-2 < 1 {
			continue
		}
		x := randRange(rng, 1, width-w-1)
		y := randRange(rng, 1, height-h-1)
		candidate := Rect{X: x, Y: y, W: w, H: h}

		overlaps := false
		for _, other := range rooms {
			if candidate.Intersects(other) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		carveRoom(grid, candidate)
		if len(rooms) > 0 {
			px, py := rooms[len(rooms)-1].Center()
			cx, cy := candidate.Center()
			if rng.Intn(2) == 0 {
				riverCells = append(riverCells, carveHCorridor(grid, px, cx, py)...)
				riverCells = append(riverCells, carveVCorridor(grid, py, cy, cx)...)
			} else {
				riverCells = append(riverCells, carveVCorridor(grid, py, cy, px)...)
				riverCells = append(riverCells, carveHCorridor(grid, px, cx, cy)...)
			}
		}
		rooms = append(rooms, candidate)
	}

	out := Generated{}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			env := "stone"
			if !grid[y][x] {
				env = "floor"
			}
			out.Tiles = append(out.Tiles, model.Tile{
				WorldID: worldID,
				X:       x,
				Y:       y,
				Data: map[string]any{
					"isWall": grid[y][x],
					"env":    env,
				},
			})
		}
	}

	for i, room := range rooms {
		cx, cy := room.Center()
		out.Regions = append(out.Regions, model.Region{
			ID:      fmt.Sprintf("%s-region-%d", worldID, i),
			WorldID: worldID,
			Name:    fmt.Sprintf("Chamber %d", i+1),
			Data: map[string]any{
				"x": room.X, "y": room.Y, "w": room.W, "h": room.H,
				"centerX": cx, "centerY": cy,
			},
		})
	}

	if len(rooms) > 0 {
		ex, ey := rooms[0].Center()
		out.Structures = append(out.Structures, model.Structure{
			ID:      fmt.Sprintf("%s-entry", worldID),
			WorldID: worldID,
			Data:    map[string]any{"kind": "entry", "x": ex, "y": ey},
		})
		lx, ly := rooms[len(rooms)-1].Center()
		out.Structures = append(out.Structures, model.Structure{
			ID:      fmt.Sprintf("%s-exit", worldID),
			WorldID: worldID,
			Data:    map[string]any{"kind": "exit", "x": lx, "y": ly},
		})
	}

	if len(riverCells) > 0 {
		cells := make([]map[string]any, 0, len(riverCells))
		for _, c := range riverCells {
			cells = append(cells, map[string]any{"x": c[0], "y": c[1]})
		}
		out.Rivers = append(out.Rivers, model.River{
			ID:      fmt.Sprintf("%s-river-0", worldID),
			WorldID: worldID,
			Data:    map[string]any{"cells": cells},
		})
	}

	return out
}

func carveRoom(grid [][]bool, room Rect) {
	for y := room.Y + 1; y < room.Y+room.H; y++ {
		for x := room.X + 1; x < room.X+room.W; x++ {
			grid[y][x] = false
		}
	}
}

func carveHCorridor(grid [][]bool, x1, x2, y int) [][2]int {
	start, end := minInt(x1, x2), maxInt(x1, x2)
	var cells [][2]int
	for x := start; x <= end; x++ {
		grid[y][x] = false
		cells = append(cells, [2]int{x, y})
	}
	return cells
}

func carveVCorridor(grid [][]bool, y1, y2, x int) [][2]int {
	start, end := minInt(y1, y2), maxInt(y1, y2)
	var cells [][2]int
	for y := start; y <= end; y++ {
		grid[y][x] = false
		cells = append(cells, [2]int{x, y})
	}
	return cells
}

func randRange(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return rng.Intn(hi-lo+1) + lo
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
