// Package compress implements the self-describing compressed blocks used for
// log map values and key directory hints, plus the zstd streams used by backups.
//
// Each block records its algorithm, so a map opened with a different
// compression setting still reads the values written before.
package compress
