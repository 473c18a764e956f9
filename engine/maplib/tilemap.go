package maplib

import (
	"encoding/json"
	"os"
)

// TerrainType defines the terrain of a tile
type TerrainType uint8

const (
	TerrainGrass TerrainType = iota
	TerrainDirt
	TerrainSand
	TerrainWater
	TerrainRock
	TerrainRoad
	TerrainForest
)

// Tile represents a single map tile
type Tile struct {
	Terrain TerrainType `json:"terrain"`
	Height  int8        `json:"height"` // elevation level (0-7)
}

// TileMap is the ground the pointer is cast onto
type TileMap struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tiles"`

	StartPositions []StartPos `json:"start_positions"`
	MaxPlayers     int        `json:"max_players"`

	// Isometric rendering constants
	TileWidth  int `json:"tile_width"`  // pixel width of a tile
	TileHeight int `json:"tile_height"` // pixel height of a tile
}

// StartPos defines a player start position
type StartPos struct {
	PlayerSlot int `json:"player_slot"`
	X          int `json:"x"`
	Y          int `json:"y"`
}

// NewTileMap creates a flat grass map
func NewTileMap(name string, width, height int) *TileMap {
	return &TileMap{
		Name:       name,
		Width:      width,
		Height:     height,
		Tiles:      make([]Tile, width*height),
		TileWidth:  64,
		TileHeight: 32,
		MaxPlayers: 2,
	}
}

// At returns a pointer to the tile at (x, y), or nil out of bounds
func (tm *TileMap) At(x, y int) *Tile {
	if !tm.InBounds(x, y) {
		return nil
	}
	return &tm.Tiles[y*tm.Width+x]
}

// InBounds checks if coordinates are within map bounds
func (tm *TileMap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < tm.Width && y < tm.Height
}

// SetTerrain sets terrain for a rectangular region
func (tm *TileMap) SetTerrain(x1, y1, x2, y2 int, terrain TerrainType) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			if t := tm.At(x, y); t != nil {
				t.Terrain = terrain
			}
		}
	}
}

// SetHeight raises a rectangular region to an elevation level
func (tm *TileMap) SetHeight(x1, y1, x2, y2 int, h int8) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			if t := tm.At(x, y); t != nil {
				t.Height = h
			}
		}
	}
}

// SaveJSON saves the map to a JSON file
func (tm *TileMap) SaveJSON(path string) error {
	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadJSON loads a map from a JSON file
func LoadJSON(path string) (*TileMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tm TileMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, err
	}
	return &tm, nil
}
