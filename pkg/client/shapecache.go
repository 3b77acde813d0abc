package client

import (
	"log"

	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// cachedShape is the most recently seen create/update state for one
// shape instance.
type cachedShape struct {
	category   uint16
	flags      tesmsg.ObjectFlag
	attributes tesmsg.ObjectAttributes
}

// ShapeCache is a Handler that reconstructs the live instance set for
// one routing id, following spec §4.11's lifecycle: persistent
// instances (id != 0) survive frame boundaries until an explicit
// destroy; transient instances
// (id == 0) are dropped at the next non-persisting frame boundary. A
// duplicate persistent create without the replace flag is logged and
// discarded rather than overwriting the live instance.
type ShapeCache struct {
	persistent map[uint32]cachedShape
	transient  []cachedShape
	logger     *log.Logger
}

// NewShapeCache constructs an empty cache. A nil logger defaults to
// log.Default().
func NewShapeCache(logger *log.Logger) *ShapeCache {
	if logger == nil {
		logger = log.Default()
	}
	return &ShapeCache{persistent: make(map[uint32]cachedShape), logger: logger}
}

// Count reports the number of live persistent instances.
func (c *ShapeCache) Count() int { return len(c.persistent) }

// TransientCount reports the number of transient instances accumulated
// since the last frame boundary cleared them.
func (c *ShapeCache) TransientCount() int { return len(c.transient) }

// Get returns the cached attributes for a persistent id.
func (c *ShapeCache) Get(id uint32) (tesmsg.ObjectAttributes, bool) {
	entry, ok := c.persistent[id]
	return entry.attributes, ok
}

// HandleCreate implements Handler.
func (c *ShapeCache) HandleCreate(r *wire.Reader) error {
	var msg tesmsg.CreateMessage
	if err := msg.Read(r); err != nil {
		return err
	}
	entry := cachedShape{category: msg.Category, flags: msg.Flags, attributes: msg.Attributes}

	if msg.ID == 0 {
		c.transient = append(c.transient, entry)
		return nil
	}
	if msg.Flags&tesmsg.OFReplace == 0 {
		if _, exists := c.persistent[msg.ID]; exists {
			c.logger.Printf("client: duplicate persistent create for id %d discarded", msg.ID)
			return nil
		}
	}
	c.persistent[msg.ID] = entry
	return nil
}

// HandleUpdate implements Handler, merging only the attribute groups
// msg.Flags selects (or all of them, absent UFUpdateMode) into the
// matching persistent instance. An update for an unknown id is
// ignored.
func (c *ShapeCache) HandleUpdate(r *wire.Reader) error {
	var msg tesmsg.UpdateMessage
	if err := msg.Read(r); err != nil {
		return err
	}
	entry, ok := c.persistent[msg.ID]
	if !ok {
		return nil
	}
	if msg.HasAttributeGroup(tesmsg.UFPosition) {
		entry.attributes.Position = msg.Attributes.Position
	}
	if msg.HasAttributeGroup(tesmsg.UFRotation) {
		entry.attributes.Rotation = msg.Attributes.Rotation
	}
	if msg.HasAttributeGroup(tesmsg.UFScale) {
		entry.attributes.Scale = msg.Attributes.Scale
	}
	if msg.HasAttributeGroup(tesmsg.UFColour) {
		entry.attributes.Colour = msg.Attributes.Colour
	}
	c.persistent[msg.ID] = entry
	return nil
}

// HandleDestroy implements Handler, dropping the persistent instance.
func (c *ShapeCache) HandleDestroy(r *wire.Reader) error {
	var msg tesmsg.DestroyMessage
	if err := msg.Read(r); err != nil {
		return err
	}
	delete(c.persistent, msg.ID)
	return nil
}

// HandleData implements Handler. The cache tracks instance lifecycle
// only; a complex shape's streamed vertex/index payload has no effect
// on it.
func (c *ShapeCache) HandleData(r *wire.Reader) error {
	var msg tesmsg.DataMessage
	return msg.Read(r)
}

// Reset implements Handler, clearing every cached instance.
func (c *ShapeCache) Reset() {
	c.persistent = make(map[uint32]cachedShape)
	c.transient = nil
}

// FinaliseFrame implements Handler: transient instances are dropped at
// the frame boundary unless persist is set (Control/Frame's
// CFFramePersist flag).
func (c *ShapeCache) FinaliseFrame(persist bool) {
	if !persist {
		c.transient = nil
	}
}
