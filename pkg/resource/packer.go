package resource

import (
	"github.com/tes-go/tesproto/pkg/wire"
)

// packerState is Idle or Streaming; see Packer's doc comment.
type packerState int

const (
	packerIdle packerState = iota
	packerStreaming
)

// Packer drives one resource's chunked create+data transfer. It is a
// direct port of the original ResourcePacker's state machine: Idle
// with no resource set; Start admits a resource and arms the next
// NextPacket call to emit its create packet; subsequent NextPacket
// calls emit bounded data packets until the resource reports done, at
// which point the packer returns to Idle and records the resource's
// key as LastCompleted.
type Packer struct {
	state       packerState
	resource    Resource
	progress    uint64
	created     bool
	lastID      ID
	lastIDValid bool
}

// Idle reports whether the packer has no resource in flight.
func (p *Packer) Idle() bool { return p.state == packerIdle }

// Progress returns the in-flight resource's opaque progress counter
// (spec §3 "Transfer progress"), 0 when idle.
func (p *Packer) Progress() uint64 { return p.progress }

// Start admits resource for transfer, cancelling (without emitting a
// destroy) whatever transfer was previously in flight. The client
// still sees any partial create+data already sent for the cancelled
// resource; a subsequent Start for the same key resumes from scratch
// cleanly because Created is reset.
func (p *Packer) Start(r Resource) {
	p.resource = r
	p.progress = 0
	p.created = false
	p.state = packerStreaming
}

// Cancel discards any resource in flight without emitting a destroy
// message.
func (p *Packer) Cancel() {
	p.resource = nil
	p.state = packerIdle
}

// LastCompleted returns the key of the most recently fully-streamed
// resource and whether one exists yet.
func (p *Packer) LastCompleted() (ID, bool) {
	return p.lastID, p.lastIDValid
}

// NextPacket writes the next packet of the in-flight transfer (create
// on the first call, then bounded data packets) into a fresh packet
// begun on w at routingID/create-or-data message id. byteBudget bounds
// the payload size of data packets; create packets are never
// truncated. It returns the finalised packet bytes and whether the
// packer is now idle (transfer complete).
func (p *Packer) NextPacket(w *wire.Writer, routingID uint16, createMsgID, dataMsgID uint16, byteBudget int) (packet []byte, done bool, err error) {
	if p.state != packerStreaming || p.resource == nil {
		return nil, true, nil
	}

	if !p.created {
		w.Begin(routingID, createMsgID, false)
		if err := w.WriteU32(uint64ToU32(uint64(p.resource.Key()))); err != nil {
			return nil, false, err
		}
		if err := p.resource.WriteCreate(w); err != nil {
			return nil, false, err
		}
		p.created = true
		packet, err = w.Finalise()
		return packet, false, err
	}

	w.Begin(routingID, dataMsgID, false)
	if err := w.WriteU32(uint64ToU32(uint64(p.resource.Key()))); err != nil {
		return nil, false, err
	}
	complete, err := p.resource.WriteData(w, &p.progress, byteBudget)
	if err != nil {
		p.state = packerIdle
		p.resource = nil
		return nil, true, err
	}
	packet, err = w.Finalise()
	if err != nil {
		return nil, false, err
	}
	if complete {
		p.lastID = p.resource.Key()
		p.lastIDValid = true
		p.state = packerIdle
		p.resource = nil
		return packet, true, nil
	}
	return packet, false, nil
}

// uint64ToU32 truncates a resource key to the 32 bits the wire id
// field carries; keys are minted by KeyFromName and callers are
// expected to tolerate the resulting id space, matching the original
// protocol's 32-bit resource id field.
func uint64ToU32(v uint64) uint32 { return uint32(v) }

// Ledger tracks per-connection reference counts for resources, so a
// Connection (C9) knows when a reference first becomes live (queue a
// create transfer) or last drops (queue a destroy).
type Ledger struct {
	counts map[ID]int
}

// NewLedger constructs an empty reference-count ledger.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[ID]int)}
}

// Reference increments the reference count for key and reports
// whether this was the first reference.
func (l *Ledger) Reference(key ID) (firstRef bool) {
	l.counts[key]++
	return l.counts[key] == 1
}

// Dereference decrements the reference count for key and reports
// whether this dropped the last reference. Dereferencing a key with
// no outstanding references is a no-op returning false.
func (l *Ledger) Dereference(key ID) (lastRef bool) {
	n, ok := l.counts[key]
	if !ok || n == 0 {
		return false
	}
	n--
	if n == 0 {
		delete(l.counts, key)
		return true
	}
	l.counts[key] = n
	return false
}

// Count returns the current reference count for key.
func (l *Ledger) Count(key ID) int {
	return l.counts[key]
}
