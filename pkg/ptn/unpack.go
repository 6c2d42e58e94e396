package ptn

import (
	"fmt"
	"os"
	"path/filepath"
)

// Unpack decodes data and writes every partition to outDir, one file per
// entry named after it. Existing files are overwritten.
func Unpack(data []byte, outDir string, opts DecodeOptions) ([]Entry, error) {
	img, err := Parse(data, opts)
	if err != nil {
		return nil, err
	}
	return unpackImage(img, outDir)
}

// UnpackFile maps the image at path and unpacks it into outDir.
func UnpackFile(path, outDir string, opts DecodeOptions) ([]Entry, error) {
	img, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = img.Close() }()
	return unpackImage(img, outDir)
}

func unpackImage(img *Image, outDir string) ([]Entry, error) {
	// Validate every range before touching the filesystem.
	payloads := make([][]byte, len(img.Entries))
	for i, e := range img.Entries {
		p, err := img.Payload(e)
		if err != nil {
			return nil, err
		}
		payloads[i] = p
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	for i, e := range img.Entries {
		path := filepath.Join(outDir, e.Name)
		if err := os.WriteFile(path, payloads[i], 0o644); err != nil {
			return nil, fmt.Errorf("write partition %q: %w", e.Name, err)
		}
	}
	return img.Entries, nil
}
