// Package model defines the persistent entity types of the simulation core.
// Every type here mirrors a row (or an embedded JSON column) in the relational
// store owned by internal/repo; handlers never construct ad-hoc shapes of
// their own for persisted state.
package model

import "time"

// Stats holds the six ability scores shared by every character.
type Stats struct {
	Str int `json:"str"`
	Dex int `json:"dex"`
	Con int `json:"con"`
	Int int `json:"int"`
	Wis int `json:"wis"`
	Cha int `json:"cha"`
}

// Modifier returns the D&D-style ability modifier floor((score-10)/2).
func Modifier(score int) int {
	if score >= 10 {
		return (score - 10) / 2
	}
	// floor division for negatives
	diff := score - 10
	mod := diff / 2
	if diff%2 != 0 {
		mod--
	}
	return mod
}

type CharacterType string

const (
	CharacterPC    CharacterType = "pc"
	CharacterNPC   CharacterType = "npc"
	CharacterEnemy CharacterType = "enemy"
	CharacterAlly  CharacterType = "ally"
)

type Character struct {
	ID            string        `json:"id"`
	WorldID       string        `json:"worldId,omitempty"`
	Name          string        `json:"name"`
	Stats         Stats         `json:"stats"`
	HP            int           `json:"hp"`
	MaxHP         int           `json:"maxHp"`
	AC            int           `json:"ac"`
	Level         int           `json:"level"`
	FactionID     string        `json:"factionId,omitempty"`
	Behavior      string        `json:"behavior,omitempty"`
	CharacterType CharacterType `json:"characterType"`
	HitDieSize    int           `json:"hitDieSize,omitempty"` // d6..d12, defaults to d8
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type ItemType string

const (
	ItemWeapon     ItemType = "weapon"
	ItemArmor      ItemType = "armor"
	ItemConsumable ItemType = "consumable"
	ItemQuest      ItemType = "quest"
	ItemMisc       ItemType = "misc"
)

type Item struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       ItemType       `json:"type"`
	Weight     float64        `json:"weight"`
	Value      int            `json:"value"`
	Properties map[string]any `json:"properties,omitempty"`
}

// InventoryEntry is keyed by (CharacterID, ItemID).
type InventoryEntry struct {
	CharacterID string `json:"characterId"`
	ItemID      string `json:"itemId"`
	Quantity    int    `json:"quantity"`
	Equipped    bool   `json:"equipped"`
	Slot        string `json:"slot,omitempty"`
}

type World struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Seed      int64     `json:"seed"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// TileCache holds a gzip-compressed snapshot of the derived tile grid.
	// It is an optimisation, not primary state: invalidated on any mutation.
	TileCache []byte `json:"-"`
}

type AuditEntry struct {
	ID       int64          `json:"id"`
	Action   string         `json:"action"`
	ActorID  string         `json:"actorId,omitempty"`
	TargetID string         `json:"targetId,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Ts       time.Time      `json:"timestamp"`
}

type EventEntry struct {
	ID      int64          `json:"id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	Ts      time.Time      `json:"timestamp"`
}
