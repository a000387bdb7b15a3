package wal

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/hupe1980/vcslog/internal/hash"
)

// RecordType identifies the type of a log record.
type RecordType uint8

const (
	RecordTypePut    RecordType = 1
	RecordTypeDelete RecordType = 2
)

var (
	ErrInvalidCRC     = errors.New("invalid log record checksum")
	ErrInvalidType    = errors.New("invalid log record type")
	ErrRecordTooLarge = errors.New("log record too large")
)

// IsDamaged reports whether err marks a torn or corrupt record rather than
// a failure of the underlying reader.
func IsDamaged(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, ErrInvalidCRC) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrRecordTooLarge)
}

// MaxRecordSize bounds the key plus value length of a single record.
const MaxRecordSize = 256 << 20

// recordHeaderSize is CRC (4) + Type (1) + KeyLen (4) + ValLen (4).
const recordHeaderSize = 13

// Record is a single mutation in the log.
type Record struct {
	Type  RecordType
	Key   []byte
	Value []byte
}

// Size returns the encoded size of the record.
func (r *Record) Size() int64 {
	return recordHeaderSize + int64(len(r.Key)) + int64(len(r.Value))
}

// Encode writes the record to w.
// Format:
// [CRC32C: 4 bytes] [Type: 1 byte] [KeyLen: 4 bytes] [ValLen: 4 bytes] [Key] [Value]
// The checksum covers everything after itself.
func (r *Record) Encode(w io.Writer) error {
	if len(r.Key)+len(r.Value) > MaxRecordSize {
		return ErrRecordTooLarge
	}
	var header [recordHeaderSize]byte
	header[4] = byte(r.Type)
	binary.LittleEndian.PutUint32(header[5:], uint32(len(r.Key)))
	binary.LittleEndian.PutUint32(header[9:], uint32(len(r.Value)))

	crc := hash.NewCRC32C()
	crc.Write(header[4:])
	crc.Write(r.Key)
	crc.Write(r.Value)
	binary.LittleEndian.PutUint32(header[:4], crc.Sum32())

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(r.Key); err != nil {
		return err
	}
	_, err := w.Write(r.Value)
	return err
}

// Decode reads a record from r and returns it together with its encoded size.
// It returns io.EOF only when r is exhausted exactly at a record boundary;
// a partially written record yields io.ErrUnexpectedEOF. Other read errors
// are returned unchanged.
func Decode(r io.Reader) (*Record, int64, error) {
	var header [recordHeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return nil, 0, io.EOF
		}
		return nil, int64(n), err
	}

	checksum := binary.LittleEndian.Uint32(header[:4])
	recType := RecordType(header[4])
	keyLen := binary.LittleEndian.Uint32(header[5:])
	valLen := binary.LittleEndian.Uint32(header[9:])

	if uint64(keyLen)+uint64(valLen) > MaxRecordSize {
		return nil, recordHeaderSize, ErrRecordTooLarge
	}

	body := make([]byte, int(keyLen)+int(valLen))
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, recordHeaderSize, err
	}
	size := recordHeaderSize + int64(len(body))

	crc := hash.NewCRC32C()
	crc.Write(header[4:])
	crc.Write(body)
	if crc.Sum32() != checksum {
		return nil, size, ErrInvalidCRC
	}

	switch recType {
	case RecordTypePut, RecordTypeDelete:
	default:
		return nil, size, ErrInvalidType
	}

	return &Record{
		Type:  recType,
		Key:   body[:keyLen:keyLen],
		Value: body[keyLen:],
	}, size, nil
}
