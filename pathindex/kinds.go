package pathindex

import (
	"fmt"

	"github.com/hupe1980/vcslog/codec"
)

// ChangeKind classifies what happened to a path relative to one parent.
type ChangeKind byte

// Stable wire ids. Never renumber.
const (
	Modified   ChangeKind = 0
	NotChanged ChangeKind = 1
	Added      ChangeKind = 2
	Removed    ChangeKind = 3
)

var kindNames = [...]string{
	Modified:   "MODIFIED",
	NotChanged: "NOT_CHANGED",
	Added:      "ADDED",
	Removed:    "REMOVED",
}

func (k ChangeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ChangeKind(%d)", byte(k))
}

// KindByID returns the kind with the given wire id.
func KindByID(id byte) (ChangeKind, error) {
	if int(id) >= len(kindNames) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownChangeKind, id)
	}
	return ChangeKind(id), nil
}

// ParseChangeKind parses the String form of a kind.
func ParseChangeKind(s string) (ChangeKind, error) {
	for id, name := range kindNames {
		if name == s {
			return ChangeKind(id), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChangeKind, s)
}

// Kinds encodes a kind sequence as a varint count followed by one byte per
// kind. Decoding an unknown byte fails.
var Kinds codec.Codec[[]ChangeKind] = kindsCodec{}

type kindsCodec struct{}

func (kindsCodec) Write(w *codec.Writer, v []ChangeKind) error {
	w.WriteVarInt(len(v))
	for _, k := range v {
		if int(k) >= len(kindNames) {
			return fmt.Errorf("%w: %d", ErrUnknownChangeKind, byte(k))
		}
		_ = w.WriteByte(byte(k))
	}
	return nil
}

func (kindsCodec) Read(r *codec.Reader) ([]ChangeKind, error) {
	n, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: %d kinds", codec.ErrInvalidLength, n)
	}
	kinds := make([]ChangeKind, n)
	for i := range kinds {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if kinds[i], err = KindByID(b); err != nil {
			return nil, err
		}
	}
	return kinds, nil
}

// ChangeType is the change a VCS reports for a path against one parent.
type ChangeType int

const (
	ChangeModified ChangeType = iota
	ChangeCreated
	ChangeDeleted
	ChangeMoved
)

var changeTypeNames = [...]string{
	ChangeModified: "modified",
	ChangeCreated:  "created",
	ChangeDeleted:  "deleted",
	ChangeMoved:    "moved",
}

func (t ChangeType) String() string {
	if t >= 0 && int(t) < len(changeTypeNames) {
		return changeTypeNames[t]
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ParseChangeType parses the String form of a change type.
func ParseChangeType(s string) (ChangeType, error) {
	for t, name := range changeTypeNames {
		if name == s {
			return ChangeType(t), nil
		}
	}
	return 0, fmt.Errorf("pathindex: unknown change type %q", s)
}

// Kind maps a change type to its classification.
func (t ChangeType) Kind() ChangeKind {
	switch t {
	case ChangeCreated:
		return Added
	case ChangeDeleted:
		return Removed
	default:
		return Modified
	}
}
