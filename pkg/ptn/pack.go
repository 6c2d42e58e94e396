package ptn

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Partition is a named payload. Its size is len(Data).
type Partition struct {
	Name string
	Data []byte
}

// PackOptions configures Pack.
type PackOptions struct {
	// Registry resolves Model. Nil selects DefaultRegistry.
	Registry *Registry

	// Model is the registry key. Empty selects DefaultModelKey.
	Model string

	InputDir   string
	OutputPath string
}

// PackResult describes a packed image.
type PackResult struct {
	Model     Model
	Entries   []Entry
	TotalSize uint32
	Checksum  [ChecksumSize]byte
}

// Pack assembles every regular file in InputDir into an image at OutputPath
// and repairs its digest.
//
// The image is written to a temporary file next to OutputPath and renamed
// into place once complete, so a failed pack never leaves a partial image.
func Pack(opts PackOptions) (*PackResult, error) {
	if opts.InputDir == "" {
		return nil, errors.New("ptn: pack: InputDir required")
	}
	if opts.OutputPath == "" {
		return nil, errors.New("ptn: pack: OutputPath required")
	}
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	key := opts.Model
	if key == "" {
		key = DefaultModelKey
	}
	m, err := reg.Lookup(key)
	if err != nil {
		return nil, err
	}

	parts, err := ReadPartitions(opts.InputDir)
	if err != nil {
		return nil, err
	}
	parts, err = OrderPartitions(parts)
	if err != nil {
		return nil, err
	}
	image, entries, err := Assemble(m, parts)
	if err != nil {
		return nil, err
	}

	if err := writeImage(opts.OutputPath, image, m); err != nil {
		return nil, err
	}
	_, sum, err := DigestFile(opts.OutputPath, m)
	if err != nil {
		return nil, err
	}
	return &PackResult{
		Model:     m,
		Entries:   entries,
		TotalSize: uint32(len(image)),
		Checksum:  sum,
	}, nil
}

// ReadPartitions reads every regular file in dir, in directory order.
func ReadPartitions(dir string) ([]Partition, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var parts []Partition
	for _, de := range ents {
		if !de.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			return nil, err
		}
		parts = append(parts, Partition{Name: de.Name(), Data: data})
	}
	return parts, nil
}

// OrderPartitions moves the partition-table partition to the front, keeping
// the relative order of the rest.
func OrderPartitions(parts []Partition) ([]Partition, error) {
	idx := -1
	for i, p := range parts {
		if p.Name != TableName {
			continue
		}
		if idx >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePartition, TableName)
		}
		idx = i
	}
	if idx < 0 {
		return nil, ErrMissingTablePartition
	}
	out := make([]Partition, 0, len(parts))
	out = append(out, parts[idx])
	out = append(out, parts[:idx]...)
	out = append(out, parts[idx+1:]...)
	return out, nil
}

// Assemble builds an image from parts in the given order. The header carries
// the model placeholder in its digest field; call Repair or FixFile to
// replace it. parts[0] must be the partition-table partition.
func Assemble(m Model, parts []Partition) ([]byte, []Entry, error) {
	if len(parts) == 0 || parts[0].Name != TableName {
		return nil, nil, ErrMissingTablePartition
	}
	m = m.withDefaults()

	total := uint64(PayloadOffset)
	for _, p := range parts {
		total += uint64(len(p.Data))
	}
	if total > math.MaxUint32 {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, total)
	}

	entries := Layout(parts)
	table, err := EncodeEntries(entries)
	if err != nil {
		return nil, nil, err
	}

	hdr := NewHeader(uint32(total), m.PlaceholderDigest(), m.Vendor, m.ID)
	raw := hdr.Encode()

	image := make([]byte, 0, total)
	image = append(image, raw[:]...)
	image = append(image, table...)
	for _, p := range parts {
		image = append(image, p.Data...)
	}
	return image, entries, nil
}

func writeImage(path string, image []byte, m Model) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := writeFull(tmp, image); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if _, err := FixFile(tmpPath, m); err != nil {
		return err
	}
	if err := syncFile(tmpPath); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
