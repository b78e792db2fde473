package badger

import (
	"fmt"

	"github.com/google/uuid"
)

// Key prefixes for different record types
const (
	blobPrefix     = "blob"
	blobInfoPrefix = "blobinfo"
)

// makeBlobKey generates the key for a document's raw bytes.
func makeBlobKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s:%s", blobPrefix, id))
}

// makeBlobInfoKey generates the key for a document's blob info record.
func makeBlobInfoKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s:%s", blobInfoPrefix, id))
}
