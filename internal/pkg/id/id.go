package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a ULID string for todo ids. ULIDs sort by creation time,
// which keeps listings in insertion order without a separate sort key.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
