package pmap

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/internal/compress"
	"github.com/hupe1980/vcslog/internal/fs"
	"github.com/hupe1980/vcslog/internal/hash"
)

const (
	hintMagic   = "VCSLHINT"
	hintVersion = 1
)

var errBadHint = errors.New("invalid hint file")

// entry locates the latest record of a key in the log.
type entry struct {
	offset  int64 // value offset
	size    int32 // value length
	deleted bool
}

// hint is a snapshot of the key directory valid for the first logOffset bytes of the log.
type hint struct {
	logOffset int64
	keydir    map[string]entry
}

// Hint layout (zstd block): magic, version, log offset, entry count,
// entries [key][offset][size][deleted], CRC32C of everything before it.
func encodeHint(h hint) ([]byte, error) {
	w := codec.NewWriter(make([]byte, 0, 64+len(h.keydir)*32))
	_, _ = w.Write([]byte(hintMagic))
	w.WriteInt32(hintVersion)
	w.WriteInt64(h.logOffset)
	w.WriteVarInt(len(h.keydir))
	for k, e := range h.keydir {
		w.WriteUTF(k)
		w.WriteInt64(e.offset)
		w.WriteInt32(e.size)
		var del byte
		if e.deleted {
			del = 1
		}
		_ = w.WriteByte(del)
	}
	w.WriteUint32(hash.CRC32C(w.Bytes()))
	return compress.Compress(w.Bytes(), compress.ZSTD)
}

func decodeHint(block []byte) (hint, error) {
	payload, err := compress.Decompress(block)
	if err != nil {
		return hint{}, err
	}
	if len(payload) < len(hintMagic)+4 {
		return hint{}, fmt.Errorf("%w: %d bytes", errBadHint, len(payload))
	}
	body, sum := payload[:len(payload)-4], binary.BigEndian.Uint32(payload[len(payload)-4:])
	if hash.CRC32C(body) != sum {
		return hint{}, fmt.Errorf("%w: checksum mismatch", errBadHint)
	}
	if string(body[:len(hintMagic)]) != hintMagic {
		return hint{}, fmt.Errorf("%w: bad magic", errBadHint)
	}

	r := codec.NewReader(body[len(hintMagic):])
	version, err := r.ReadInt32()
	if err != nil {
		return hint{}, err
	}
	if version != hintVersion {
		return hint{}, fmt.Errorf("%w: version %d", errBadHint, version)
	}
	logOffset, err := r.ReadInt64()
	if err != nil {
		return hint{}, err
	}
	n, err := r.ReadVarInt()
	if err != nil {
		return hint{}, err
	}
	if n < 0 {
		return hint{}, fmt.Errorf("%w: negative count", errBadHint)
	}

	keydir := make(map[string]entry, n)
	for range n {
		k, err := r.ReadUTF()
		if err != nil {
			return hint{}, err
		}
		off, err := r.ReadInt64()
		if err != nil {
			return hint{}, err
		}
		size, err := r.ReadInt32()
		if err != nil {
			return hint{}, err
		}
		del, err := r.ReadByte()
		if err != nil {
			return hint{}, err
		}
		keydir[k] = entry{offset: off, size: size, deleted: del == 1}
	}
	if !r.EOF() {
		return hint{}, fmt.Errorf("%w: trailing bytes", errBadHint)
	}
	return hint{logOffset: logOffset, keydir: keydir}, nil
}

func writeHint(fsys fs.FileSystem, path string, h hint) error {
	data, err := encodeHint(h)
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, path, data)
}

func readHint(fsys fs.FileSystem, path string) (hint, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return hint{}, err
	}
	return decodeHint(data)
}
