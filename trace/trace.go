// Package trace records scheduler events in a compact wire format so
// dispatch histories can be captured, stored and compared offline.
//
// A serialized log is a sequence of length-delimited records, one per
// event, each holding protobuf varint fields. Zero-valued fields are
// omitted and unknown fields are skipped, so logs written by newer
// versions of the package remain readable.
package trace

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/loomkit/fiber"
)

// Field numbers of the wire format.
const (
	fieldEntry = 1 // top level: one length-delimited record per event

	fieldSeq   = 1
	fieldKind  = 2
	fieldFiber = 3
	fieldIP    = 4
	fieldSP    = 5
)

// Entry is the recorded form of one scheduler event. Pointers are
// widened to 64 bits so traces read back identically across platforms.
type Entry struct {
	Seq   uint64
	Kind  fiber.EventKind
	Fiber uint64
	IP    uint64
	SP    uint64
}

func (e Entry) String() string {
	if e.Fiber == 0 {
		return fmt.Sprintf("#%d %s", e.Seq, e.Kind)
	}
	return fmt.Sprintf("#%d %s fiber=%d", e.Seq, e.Kind, e.Fiber)
}

// Log is an in-memory event log. The zero value is empty and ready to
// record: pass the Append method to fiber.WithObserver.
type Log struct {
	Entries []Entry
}

// Append records one scheduler event at the tail of the log.
func (l *Log) Append(e fiber.Event) {
	l.Entries = append(l.Entries, Entry{
		Seq:   e.Seq,
		Kind:  e.Kind,
		Fiber: e.Fiber,
		IP:    uint64(e.IP),
		SP:    uint64(e.SP),
	})
}

// MarshalAppend appends the serialized log to b and returns the
// extended buffer.
func (l *Log) MarshalAppend(b []byte) []byte {
	var scratch []byte
	for i := range l.Entries {
		scratch = l.Entries[i].marshalAppend(scratch[:0])
		b = protowire.AppendTag(b, fieldEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, scratch)
	}
	return b
}

// Unmarshal appends the entries serialized in b to the log, returning
// the number of bytes consumed to reconstruct them.
func (l *Log) Unmarshal(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		num, typ, tagLen := protowire.ConsumeTag(b[n:])
		if tagLen < 0 {
			return n, fmt.Errorf("trace: invalid record tag: %w", protowire.ParseError(tagLen))
		}
		if num != fieldEntry || typ != protowire.BytesType {
			return n, fmt.Errorf("trace: unexpected field %d with wire type %d", num, typ)
		}
		rec, recLen := protowire.ConsumeBytes(b[n+tagLen:])
		if recLen < 0 {
			return n, fmt.Errorf("trace: invalid record: %w", protowire.ParseError(recLen))
		}
		var e Entry
		if err := e.unmarshal(rec); err != nil {
			return n, err
		}
		l.Entries = append(l.Entries, e)
		n += tagLen + recLen
	}
	return n, nil
}

func (e *Entry) marshalAppend(b []byte) []byte {
	b = appendField(b, fieldSeq, e.Seq)
	b = appendField(b, fieldKind, uint64(e.Kind))
	b = appendField(b, fieldFiber, e.Fiber)
	b = appendField(b, fieldIP, e.IP)
	b = appendField(b, fieldSP, e.SP)
	return b
}

// appendField appends a varint field, omitting zero values.
func appendField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func (e *Entry) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("trace: invalid entry tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType {
			// A future field of another wire type: skip it.
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("trace: invalid entry field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return fmt.Errorf("trace: invalid entry varint: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldSeq:
			e.Seq = v
		case fieldKind:
			e.Kind = fiber.EventKind(v)
		case fieldFiber:
			e.Fiber = v
		case fieldIP:
			e.IP = v
		case fieldSP:
			e.SP = v
		}
	}
	return nil
}
