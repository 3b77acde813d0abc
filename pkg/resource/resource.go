// Package resource implements the resource subsystem: uniquely keyed
// mesh and point-cloud payloads, per-connection reference counting,
// and the chunked create/data transfer state machine that respects a
// packet byte budget. See spec §4.7 and the original implementation's
// ResourcePacker.h/.cpp and TransferProgress.h.
package resource

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/tes-go/tesproto/pkg/wire"
)

// Kind identifies which resource routing id a Resource transfers
// under.
type Kind uint16

const (
	// KindMesh identifies a MeshResource.
	KindMesh Kind = iota
	// KindPointCloud identifies a PointCloudResource.
	KindPointCloud
)

// ID uniquely identifies a resource within a server. Two resources
// that should be treated as the same transferable object (e.g. the
// same mesh shared by many MeshSet parts) must produce the same ID.
type ID uint64

// KeyFromName derives a deterministic resource ID from a kind and a
// caller-chosen name, so that resources constructed independently
// (e.g. loaded twice from the same asset path) collapse to a single
// reference-counted transfer. xxhash is already a transitive
// dependency of go-redis's cluster client and is promoted to direct
// use here.
func KeyFromName(kind Kind, name string) ID {
	return ID(xxhash.Sum64String(strconv.Itoa(int(kind)) + ":" + name))
}

// Resource is implemented by every resource payload kind (mesh, point
// cloud). A Resource is immutable for the lifetime of a given Key;
// changing its contents requires minting a new Key.
type Resource interface {
	Kind() Kind
	Key() ID
	// WriteCreate serialises the resource-specific part of the create
	// packet, after the key the Packer writes: essential attributes and
	// element counts, with no per-vertex data. It is called exactly
	// once per packer transfer.
	WriteCreate(w *wire.Writer) error
	// WriteData serialises the next bounded chunk of per-element data
	// starting at progress, advancing progress, into w subject to
	// byteBudget payload bytes. It returns true once no further chunks
	// remain.
	WriteData(w *wire.Writer, progress *uint64, byteBudget int) (done bool, err error)
}
