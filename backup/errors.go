package backup

import "errors"

var (
	// ErrNoBackup is returned when the store holds no published generation.
	ErrNoBackup = errors.New("backup: no generation published")

	// ErrUnsupportedVersion is returned for manifests of an unknown format.
	ErrUnsupportedVersion = errors.New("backup: unsupported manifest version")

	// ErrCorruptManifest is returned when a manifest cannot be decoded.
	ErrCorruptManifest = errors.New("backup: corrupt manifest")

	// ErrChecksumMismatch is returned when restored data does not match the manifest.
	ErrChecksumMismatch = errors.New("backup: checksum mismatch")

	// ErrTargetNotEmpty is returned when restoring into a non-empty directory.
	ErrTargetNotEmpty = errors.New("backup: target directory is not empty")
)
