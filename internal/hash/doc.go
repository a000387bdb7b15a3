// Package hash provides the checksums guarding on-disk records.
//
// Every log record, key directory hint and backup manifest carries a
// CRC32-Castagnoli checksum (hardware accelerated through
// github.com/klauspost/crc32):
//
//	checksum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
