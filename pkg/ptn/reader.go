package ptn

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Image is a parsed firmware image. Payload slices alias Data.
type Image struct {
	Data    []byte
	Header  Header
	Entries []Entry
	mmapped bool
}

// Open maps an image read-only and decodes its header and table.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned image must be closed to release any mapping.
func Open(path string, opts DecodeOptions) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrImageTooLarge
	}
	size := int(size64)
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrCorruptImage, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		img, parseErr := parseImage(data, opts, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return img, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseImage(data, opts, false)
}

// Parse decodes an image held in memory without copying it.
func Parse(data []byte, opts DecodeOptions) (*Image, error) {
	return parseImage(data, opts, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseImage(data []byte, opts DecodeOptions, mmapped bool) (*Image, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrCorruptImage, len(data))
	}
	hdr, err := DecodeHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	entries, err := DecodeTableWithOptions(data[HeaderSize:], opts)
	if err != nil {
		return nil, err
	}
	return &Image{
		Data:    data,
		Header:  hdr,
		Entries: entries,
		mmapped: mmapped,
	}, nil
}

// Close releases any mmap backing.
func (img *Image) Close() error {
	if img == nil {
		return nil
	}
	var err error
	if img.mmapped && img.Data != nil {
		err = unix.Munmap(img.Data)
	}
	img.Data = nil
	img.Entries = nil
	img.mmapped = false
	return err
}

// Body returns everything after the header. Entry offsets index into it.
func (img *Image) Body() []byte {
	if img == nil || len(img.Data) < HeaderSize {
		return nil
	}
	return img.Data[HeaderSize:]
}

// Payload returns a zero-copy view of the entry's bytes.
// The caller must not retain this slice after Close.
func (img *Image) Payload(e Entry) ([]byte, error) {
	body := img.Body()
	end := e.Base + e.Size
	if end < e.Base || end > uint64(len(body)) {
		return nil, fmt.Errorf("%w: partition %q range [%#x,%#x) exceeds body of %#x bytes",
			ErrCorruptImage, e.Name, e.Base, end, len(body))
	}
	return body[e.Base:end], nil
}

// Entry returns the table entry named name.
func (img *Image) Entry(name string) (Entry, bool) {
	for _, e := range img.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Partitions returns every entry as a Partition aliasing the image data.
func (img *Image) Partitions() ([]Partition, error) {
	parts := make([]Partition, 0, len(img.Entries))
	for _, e := range img.Entries {
		data, err := img.Payload(e)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Partition{Name: e.Name, Data: data})
	}
	return parts, nil
}

// SizeConsistent reports whether the header total size matches the file
// length.
func (img *Image) SizeConsistent() bool {
	return uint64(img.Header.TotalSize) == uint64(len(img.Data))
}
