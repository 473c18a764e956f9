package network

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/selection"
)

// ErrMalformedPayload is returned when a payload's shape does not match its tag
var ErrMalformedPayload = errors.New("malformed payload")

// Kind tags a command payload on the wire
type Kind uint8

const (
	KindSelect Kind = iota + 1
	KindMove
)

// Record sizes exclude the leading tag byte
const (
	pointSize        = 3 * 4
	selectRecordSize = 2*pointSize + 2
	moveRecordSize   = pointSize
)

// Command is a deterministic instruction produced by input and applied on
// every replica. Values are immutable once built.
type Command interface {
	Kind() Kind
}

// SelectCommand selects the units between two drag corners
type SelectCommand struct {
	From geom.Point3
	To   geom.Point3
	Mode selection.Mode
}

func (SelectCommand) Kind() Kind { return KindSelect }

// MoveCommand orders the current selection to a ground position
type MoveCommand struct {
	Target geom.Point3
}

func (MoveCommand) Kind() Kind { return KindMove }

// Encode writes a command payload: tag byte then the fixed record
func Encode(c Command) ([]byte, error) {
	var buf bytes.Buffer
	switch cmd := c.(type) {
	case SelectCommand:
		if !cmd.Mode.Valid() {
			return nil, fmt.Errorf("encode select: invalid mode %d", cmd.Mode)
		}
		add, remove := cmd.Mode.Modifiers()
		buf.Grow(1 + selectRecordSize)
		buf.WriteByte(byte(KindSelect))
		writePoint(&buf, cmd.From)
		writePoint(&buf, cmd.To)
		buf.WriteByte(boolByte(add))
		buf.WriteByte(boolByte(remove))
	case MoveCommand:
		buf.Grow(1 + moveRecordSize)
		buf.WriteByte(byte(KindMove))
		writePoint(&buf, cmd.Target)
	default:
		return nil, fmt.Errorf("encode: unsupported command %T", c)
	}
	return buf.Bytes(), nil
}

// Decode parses a payload produced by Encode. Any size or shape mismatch
// yields an error wrapping ErrMalformedPayload.
func Decode(b []byte) (Command, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}
	kind, rec := Kind(b[0]), b[1:]
	switch kind {
	case KindSelect:
		if len(rec) != selectRecordSize {
			return nil, fmt.Errorf("%w: select record is %d bytes, want %d", ErrMalformedPayload, len(rec), selectRecordSize)
		}
		r := bytes.NewReader(rec)
		var cmd SelectCommand
		cmd.From = readPoint(r)
		cmd.To = readPoint(r)
		addB, _ := r.ReadByte()
		removeB, _ := r.ReadByte()
		add, ok1 := byteBool(addB)
		remove, ok2 := byteBool(removeB)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: modifier bytes %d/%d", ErrMalformedPayload, addB, removeB)
		}
		cmd.Mode = selection.ModeFromModifiers(add, remove)
		return cmd, nil
	case KindMove:
		if len(rec) != moveRecordSize {
			return nil, fmt.Errorf("%w: move record is %d bytes, want %d", ErrMalformedPayload, len(rec), moveRecordSize)
		}
		return MoveCommand{Target: readPoint(bytes.NewReader(rec))}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedPayload, b[0])
	}
}

func writePoint(w io.Writer, p geom.Point3) {
	// writes to a bytes.Buffer cannot fail
	_ = binary.Write(w, binary.LittleEndian, [3]int32{int32(p.X), int32(p.Y), int32(p.Z)})
}

func readPoint(r io.Reader) geom.Point3 {
	var v [3]int32
	_ = binary.Read(r, binary.LittleEndian, &v)
	return geom.Point3{X: geom.Scalar(v[0]), Y: geom.Scalar(v[1]), Z: geom.Scalar(v[2])}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func byteBool(b byte) (bool, bool) {
	switch b {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

// ---- Envelope ----

// HandlerID names the simulation handler a command is delivered to
type HandlerID uint8

const (
	HandlerSelect HandlerID = iota + 1
	HandlerMove

	// HandlerFrame marks a lockstep input frame: a peer has sent everything it
	// will ever send for the envelope's tick. Never dispatched.
	HandlerFrame HandlerID = 0xff
)

func (h HandlerID) String() string {
	switch h {
	case HandlerSelect:
		return "select"
	case HandlerMove:
		return "move"
	case HandlerFrame:
		return "frame"
	default:
		return fmt.Sprintf("handler(%d)", uint8(h))
	}
}

// HandlerFor returns the handler a command kind is delivered to
func HandlerFor(c Command) HandlerID {
	switch c.Kind() {
	case KindSelect:
		return HandlerSelect
	case KindMove:
		return HandlerMove
	default:
		return 0
	}
}

// maxPayload bounds a decoded envelope payload
const maxPayload = 1024

// Envelope is an encoded command addressed to a handler, stamped with the
// issuing player and the tick it executes on
type Envelope struct {
	Tick     uint64
	Seq      uint32 // per-player issue order
	PlayerID core.PlayerID
	Handler  HandlerID
	Payload  []byte
}

// Encode writes an envelope to binary
func (e *Envelope) Encode(w io.Writer) error {
	if len(e.Payload) > maxPayload {
		return fmt.Errorf("envelope payload too large: %d", len(e.Payload))
	}
	if err := binary.Write(w, binary.LittleEndian, e.Tick); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Seq); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(e.PlayerID)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.Handler); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(e.Payload))); err != nil {
		return err
	}
	_, err := w.Write(e.Payload)
	return err
}

// Decode reads an envelope from binary
func (e *Envelope) Decode(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &e.Tick); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &e.Seq); err != nil {
		return err
	}
	var pid int32
	if err := binary.Read(r, binary.LittleEndian, &pid); err != nil {
		return err
	}
	e.PlayerID = core.PlayerID(pid)
	if err := binary.Read(r, binary.LittleEndian, &e.Handler); err != nil {
		return err
	}
	var plen uint16
	if err := binary.Read(r, binary.LittleEndian, &plen); err != nil {
		return err
	}
	if plen > maxPayload {
		return fmt.Errorf("%w: envelope payload %d bytes", ErrMalformedPayload, plen)
	}
	e.Payload = nil
	if plen > 0 {
		e.Payload = make([]byte, plen)
		if _, err := io.ReadFull(r, e.Payload); err != nil {
			return err
		}
	}
	return nil
}

// Bytes encodes the envelope into a fresh slice
func (e *Envelope) Bytes() []byte {
	var buf bytes.Buffer
	_ = e.Encode(&buf)
	return buf.Bytes()
}
