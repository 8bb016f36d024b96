package fsprovider

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seantiz/sceneloader/internal/model"
)

// ErrOutsideRoot is returned for addresses that resolve outside the content root.
var ErrOutsideRoot = errors.New("address escapes content root")

// Document is a scene file as stored on disk:
//
//	name: Lobby
//	props:
//	  music: lobby.ogg
//	objects:
//	  - type: spawn
//	    x: 10
//	    y: 4
type Document struct {
	Name    string              `yaml:"name"`
	Props   map[string]any      `yaml:"props,omitempty"`
	Objects []model.SceneObject `yaml:"objects"`
}

// DecodeDocument parses a scene document. Unknown top-level fields are
// rejected. An empty input yields an empty document.
func DecodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scene document: %w", err)
	}
	return &doc, nil
}

// resolvePath maps an address to a file under root. Addresses without an
// extension get ".yaml" appended.
func resolvePath(root, address string) (string, error) {
	rel := filepath.FromSlash(strings.TrimSpace(address))
	if rel == "" {
		return "", fmt.Errorf("resolve %q: empty address", address)
	}
	if filepath.Ext(rel) == "" {
		rel += ".yaml"
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("resolve %q: %w", address, ErrOutsideRoot)
	}
	return filepath.Join(root, rel), nil
}

// isSceneFile reports whether path looks like a scene document.
func isSceneFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
