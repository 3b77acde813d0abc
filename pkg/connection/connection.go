// Package connection implements the per-client connection state
// machine: a pending collation buffer fed by shape and resource
// traffic, frame-boundary flushing, and the resource transfer FIFO
// that must drain before a frame's shape packets for any resource a
// newly-visible shape references. See spec §4.9.
package connection

import (
	"errors"

	"github.com/tes-go/tesproto/pkg/collate"
	"github.com/tes-go/tesproto/pkg/resource"
	"github.com/tes-go/tesproto/pkg/shapes"
	"github.com/tes-go/tesproto/pkg/tesmsg"
	"github.com/tes-go/tesproto/pkg/wire"
)

// ErrDisconnected is returned by any operation attempted after the
// sink has failed.
var ErrDisconnected = errors.New("connection: disconnected")

// Sink is the byte destination a Connection flushes collated packets
// to: a TCP socket, a file, or a serial port.
type Sink interface {
	// Write writes b in its entirety. A non-blocking sink should fail
	// fast (e.g. on a full OS send buffer) rather than block; a
	// blocking sink (file, serial) always either succeeds or returns an
	// I/O error.
	Write(b []byte) error
	Close() error
}

// State is a Connection's lifecycle state.
type State int

const (
	StateConnected State = iota
	StateDisconnected
)

// pendingTransfer pairs a resource with the packer driving its
// create/data transfer.
type pendingTransfer struct {
	resource resource.Resource
	packer   resource.Packer
}

// Connection buffers a single client's outgoing traffic and drives
// its frame-flush and resource-transfer ordering.
type Connection struct {
	sink       Sink
	blocking   bool
	compress   bool
	level      collate.CompressionLevel
	byteBudget int

	state State

	collation collate.Writer
	pw        *wire.Writer

	ledger   *resource.Ledger
	fifo     []*pendingTransfer
	inFlight map[resource.ID]*pendingTransfer

	frameNumber uint32
}

// New constructs a Connection writing to sink. blocking selects the
// back-pressure policy (see Sink); compress/level configure the
// pending collation envelope; byteBudget bounds each flushed envelope
// and each resource transfer chunk.
func New(sink Sink, blocking, compress bool, level collate.CompressionLevel, byteBudget int) *Connection {
	c := &Connection{
		sink:       sink,
		blocking:   blocking,
		compress:   compress,
		level:      level,
		byteBudget: byteBudget,
		ledger:     resource.NewLedger(),
		inFlight:   make(map[resource.ID]*pendingTransfer),
		pw:         wire.NewWriter(byteBudget),
	}
	c.collation.Open(byteBudget, compress, level)
	return c
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State { return c.state }

// FrameNumber returns the number of Frame control packets this
// connection has emitted so far.
func (c *Connection) FrameNumber() uint32 { return c.frameNumber }

// TransferProgress returns a snapshot of each in-flight resource's
// opaque progress counter, keyed by resource key, for an observer
// such as pkg/telemetry to report without reaching into the FIFO.
func (c *Connection) TransferProgress() map[resource.ID]uint64 {
	out := make(map[resource.ID]uint64, len(c.inFlight))
	for key, t := range c.inFlight {
		out[key] = t.packer.Progress()
	}
	return out
}

// SendServerInfo appends the one-time ServerInfo packet every client
// expects immediately after connecting.
func (c *Connection) SendServerInfo(info tesmsg.ServerInfoMessage) error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}
	c.pw.Begin(tesmsg.RIDServerInfo, 0, false)
	if err := info.Write(c.pw); err != nil {
		return err
	}
	packet, err := c.pw.Finalise()
	if err != nil {
		return err
	}
	return c.appendOrFlush(packet)
}

// Create references shape's resources (queuing their transfer ahead
// of the shape packet, per spec §4.7), appends shape's create packet,
// and, for a Complex shape, streams its data packets until done. See
// spec §4.6/§4.7/§4.11.
func (c *Connection) Create(shape shapes.Shape) error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}

	if shape.Flags()&tesmsg.OFSkipResources == 0 {
		if referencer, ok := shape.(shapes.ResourceReferencer); ok {
			for _, r := range referencer.ReferencedResources() {
				c.ReferenceResource(r)
			}
			if err := c.drainResourceFIFO(); err != nil {
				c.disconnect()
				return err
			}
		}
	}

	c.pw.Begin(shape.RoutingID(), tesmsg.OIDCreate, false)
	if err := shape.WriteCreate(c.pw); err != nil {
		return err
	}
	packet, err := c.pw.Finalise()
	if err != nil {
		return err
	}
	if err := c.appendOrFlush(packet); err != nil {
		return err
	}

	if complex, ok := shape.(shapes.Complex); ok {
		return c.streamComplexData(complex)
	}
	return nil
}

// streamComplexData appends complex's data packets to the pending
// collation buffer, one WriteData call per packet bounded by the
// connection's byte budget, until the shape reports no more data
// remains (spec §4.6 "Complex shapes").
func (c *Connection) streamComplexData(complex shapes.Complex) error {
	var progress uint64
	for {
		c.pw.Begin(complex.RoutingID(), tesmsg.OIDData, false)
		result, err := complex.WriteData(c.pw, &progress, c.byteBudget)
		if err != nil {
			return err
		}
		packet, err := c.pw.Finalise()
		if err != nil {
			return err
		}
		if err := c.appendOrFlush(packet); err != nil {
			return err
		}
		if result == shapes.TransferDone {
			return nil
		}
	}
}

// Destroy appends shape's destroy packet.
func (c *Connection) Destroy(shape shapes.Shape) error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}
	c.pw.Begin(shape.RoutingID(), tesmsg.OIDDestroy, false)
	if err := shape.WriteDestroy(c.pw); err != nil {
		return err
	}
	packet, err := c.pw.Finalise()
	if err != nil {
		return err
	}
	return c.appendOrFlush(packet)
}

// ReferenceResource registers a reference to r on this connection. If
// this is the first reference, r's create+data transfer is enqueued
// onto the resource FIFO so it drains before the next frame flush,
// guaranteeing it precedes any shape packet that depends on it
// (spec §4.7 ordering guarantee).
func (c *Connection) ReferenceResource(r resource.Resource) {
	if !c.ledger.Reference(r.Key()) {
		return
	}
	t := &pendingTransfer{resource: r}
	t.packer.Start(r)
	c.fifo = append(c.fifo, t)
	c.inFlight[r.Key()] = t
}

// ReleaseResource drops a reference to the resource identified by
// key. If this was the last reference, a destroy packet for the
// resource's routing id is queued.
func (c *Connection) ReleaseResource(routingID uint16, key resource.ID) error {
	if !c.ledger.Dereference(key) {
		return nil
	}
	c.pw.Begin(routingID, tesmsg.OIDDestroy, false)
	if err := (tesmsg.DestroyMessage{ID: uint32(key)}).Write(c.pw); err != nil {
		return err
	}
	packet, err := c.pw.Finalise()
	if err != nil {
		return err
	}
	return c.appendOrFlush(packet)
}

// resourceRoutingID maps a resource.Kind to its wire routing id.
func resourceRoutingID(kind resource.Kind) uint16 {
	switch kind {
	case resource.KindMesh:
		return tesmsg.RIDMesh
	default:
		// Point clouds have no resource routing id of their own in this
		// protocol revision; their transfers use RIDMesh as well.
		return tesmsg.RIDMesh
	}
}

// drainResourceFIFO streams every remaining packet of each queued
// resource, in FIFO order and within byteBudget per packet, until the
// FIFO is empty. Create calls it before appending a shape's create
// packet and UpdateFrame calls it before the frame's collation flush,
// so every queued resource completes before the shape or frame
// boundary it was queued for (a conservative ordering stronger than the minimum the spec
// requires, but simple and correct).
func (c *Connection) drainResourceFIFO() error {
	for len(c.fifo) > 0 {
		t := c.fifo[0]
		routingID := resourceRoutingID(t.resource.Kind())
		packet, done, err := t.packer.NextPacket(c.pw, routingID, tesmsg.OIDCreate, tesmsg.OIDData, c.byteBudget)
		if err != nil {
			return err
		}
		if err := c.appendOrFlush(packet); err != nil {
			return err
		}
		if done {
			c.fifo = c.fifo[1:]
			delete(c.inFlight, t.resource.Key())
		}
	}
	return nil
}

// DrainTransfers emits one packet from every resource currently in
// flight, bounded per packet by the connection's configured byte
// budget. Server.UpdateTransfers calls this directly, outside of a
// frame boundary, so large transfers make progress even when frames
// are flushed infrequently.
func (c *Connection) DrainTransfers() error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}
	var remaining []*pendingTransfer
	for _, t := range c.fifo {
		routingID := resourceRoutingID(t.resource.Kind())
		packet, done, err := t.packer.NextPacket(c.pw, routingID, tesmsg.OIDCreate, tesmsg.OIDData, c.byteBudget)
		if err == nil {
			err = c.appendOrFlush(packet)
		}
		if err != nil {
			return err
		}
		if done {
			delete(c.inFlight, t.resource.Key())
		} else {
			remaining = append(remaining, t)
		}
	}
	c.fifo = remaining
	return nil
}

// UpdateFrame drains in-flight resources, appends a Frame control
// message advancing deltaTime server time units, and, if flush is
// true, finalises and writes the pending collation envelope.
func (c *Connection) UpdateFrame(deltaTime uint32, flush bool) error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}
	if err := c.drainResourceFIFO(); err != nil {
		c.disconnect()
		return err
	}

	c.pw.Begin(tesmsg.RIDControl, tesmsg.CIDFrame, false)
	if err := (tesmsg.ControlMessage{Value32: deltaTime}).Write(c.pw); err != nil {
		return err
	}
	packet, err := c.pw.Finalise()
	if err != nil {
		return err
	}
	if err := c.appendOrFlush(packet); err != nil {
		return err
	}
	c.frameNumber++

	if flush {
		return c.Flush()
	}
	return nil
}

// appendOrFlush adds packet to the pending collation buffer, flushing
// first if the packet would overflow the budget. Every packet goes
// through the collation buffer; none is written standalone.
func (c *Connection) appendOrFlush(packet []byte) error {
	if c.collation.WouldOverflow(len(packet)) {
		// packet may alias c.pw's buffer, which Flush reuses to build
		// the envelope; keep a copy.
		packet = append([]byte(nil), packet...)
		if err := c.Flush(); err != nil {
			return err
		}
	}
	if err := c.collation.Append(packet); err != nil {
		return err
	}
	return nil
}

// Append adds an already-framed packet to the pending collation
// buffer (flushing first if it would overflow the budget), for
// callers re-emitting packets they decoded rather than built
// themselves, such as cmd/tes-record's recollation modes.
func (c *Connection) Append(packet []byte) error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}
	return c.appendOrFlush(packet)
}

// WriteStandalone flushes any pending collation envelope, then writes
// packet directly to the sink, uncollated. Used for packets whose
// on-disk byte offset a caller needs to know precisely, such as the
// file-format's patched-on-close frame-count packet (spec §4.12).
func (c *Connection) WriteStandalone(packet []byte) error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}
	if err := c.Flush(); err != nil {
		return err
	}
	if err := c.sink.Write(packet); err != nil {
		c.disconnect()
		return err
	}
	return nil
}

// Flush finalises the pending collation envelope (if non-empty) and
// writes it to the sink, transitioning to Disconnected on sink
// failure.
func (c *Connection) Flush() error {
	if c.collation.Len() == 0 {
		return nil
	}
	envelope, err := c.collation.Finalise(c.pw, false)
	if err != nil {
		return err
	}
	c.collation.Open(c.byteBudget, c.compress, c.level)
	if err := c.sink.Write(envelope); err != nil {
		c.disconnect()
		return err
	}
	return nil
}

// disconnect transitions to Disconnected and releases every
// outstanding reference without emitting further destroy traffic
// (there is nowhere left to send it).
func (c *Connection) disconnect() {
	c.state = StateDisconnected
	c.ledger = resource.NewLedger()
	c.fifo = nil
	c.inFlight = make(map[resource.ID]*pendingTransfer)
}

// Close flushes any pending traffic and closes the sink.
func (c *Connection) Close() error {
	_ = c.Flush()
	c.state = StateDisconnected
	return c.sink.Close()
}
