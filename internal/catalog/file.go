package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// fileEntry is one scene in the catalog YAML file.
type fileEntry struct {
	Name    string `yaml:"name"`
	GUID    string `yaml:"guid,omitempty"`
	Address string `yaml:"address"`
}

type catalogFile struct {
	Scenes []fileEntry `yaml:"scenes"`
}

// Decode reads catalog entries from YAML of the form
//
//	scenes:
//	  - name: Lobby
//	    guid: 0b6f0f5e-3c1e-4a53-9d5b-3f3c0f61c1aa
//	    address: lobby.yaml
//
// The guid field is optional.
func Decode(r io.Reader) ([]Entry, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	entries := make([]Entry, 0, len(f.Scenes))
	for i, s := range f.Scenes {
		var guid uuid.UUID
		if s.GUID != "" {
			parsed, err := uuid.Parse(s.GUID)
			if err != nil {
				return nil, fmt.Errorf("scene %d (%s): parse guid: %w", i, s.Name, err)
			}
			guid = parsed
		}
		entries = append(entries, Entry{
			Name:      s.Name,
			Reference: NewReference(guid, s.Address),
		})
	}
	return entries, nil
}

// LoadFile reads catalog entries from the YAML file at path.
func LoadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
