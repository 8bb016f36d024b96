package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

// addressNamespace seeds GUIDs derived from an address when the catalog entry
// does not carry one.
var addressNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sceneloader://content"))

// ContentReference is an opaque, immutable handle naming loadable content.
// GUID identifies the content independently of where it lives; Address is what
// the asset system resolves.
type ContentReference struct {
	GUID    uuid.UUID `json:"guid"`
	Address string    `json:"address"`
}

// NewReference builds a reference for address. A zero guid is replaced by a
// GUID derived deterministically from the address.
func NewReference(guid uuid.UUID, address string) ContentReference {
	if guid == uuid.Nil {
		guid = uuid.NewSHA1(addressNamespace, []byte(address))
	}
	return ContentReference{GUID: guid, Address: address}
}

// IsValid reports whether the reference names any content.
func (r ContentReference) IsValid() bool {
	return r.Address != "" && r.GUID != uuid.Nil
}

func (r ContentReference) String() string {
	return fmt.Sprintf("%s(%s)", r.Address, r.GUID)
}

// Entry pairs a scene name with its content reference.
type Entry struct {
	Name      string
	Reference ContentReference
}
