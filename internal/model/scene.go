package model

import (
	"fmt"
	"strings"
	"time"
)

// LoadMode selects the scene-stacking semantics passed through to the asset system.
type LoadMode string

// Load mode constants.
const (
	LoadModeSingle   LoadMode = "single"
	LoadModeAdditive LoadMode = "additive"
)

// ParseLoadMode parses a load mode name. An empty string selects single mode.
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LoadModeSingle:
		return LoadModeSingle, nil
	case LoadModeAdditive:
		return LoadModeAdditive, nil
	default:
		return "", fmt.Errorf("unknown load mode %q", s)
	}
}

// SceneHandle is the runtime identity the asset system assigns to a scene when
// its load completes. It is unique among currently loaded scenes.
type SceneHandle int

// Scene is a loaded scene object.
type Scene struct {
	Handle   SceneHandle    `json:"handle"`
	Name     string         `json:"name"`
	Address  string         `json:"address"`
	Mode     LoadMode       `json:"mode"`
	LoadedAt time.Time      `json:"loaded_at"`
	Objects  []SceneObject  `json:"objects,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
}

// SceneObject is one entry of a scene document.
type SceneObject struct {
	Type  string         `json:"type" yaml:"type"`
	X     float64        `json:"x" yaml:"x"`
	Y     float64        `json:"y" yaml:"y"`
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
}

// Scene event kinds recorded in the journal and streamed to subscribers.
const (
	EventLoadRequested   = "load_requested"
	EventCommitted       = "committed"
	EventActivated       = "activated"
	EventUnloadRequested = "unload_requested"
	EventUnloaded        = "unloaded"
	EventUnloadIgnored   = "unload_ignored"
	EventFailed          = "failed"
)

// SceneEvent is a single lifecycle record for a scene within a batch.
type SceneEvent struct {
	ID        int64       `json:"id"`
	BatchID   string      `json:"batch_id"`
	Handle    SceneHandle `json:"handle"`
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	Mode      LoadMode    `json:"mode,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
