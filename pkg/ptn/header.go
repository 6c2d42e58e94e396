package ptn

import (
	"bytes"
	"encoding/binary"
)

const (
	// ChecksumSize is the length of the MD5 digest field.
	ChecksumSize = 16

	// VendorSize is the length of the NUL-padded vendor field.
	VendorSize = 64

	// ModelIDSize is the length of the raw model identifier.
	ModelIDSize = 8

	offTotalSize = 0
	offChecksum  = 4
	offVendor    = offChecksum + ChecksumSize
	offModelID   = offVendor + VendorSize
)

// Header is the fixed 92-byte record at the start of every image.
// TotalSize is stored big-endian. Vendor is NUL padded and is not
// terminated when all 64 bytes are used.
type Header struct {
	TotalSize uint32
	Checksum  [ChecksumSize]byte
	Vendor    [VendorSize]byte
	ModelID   [ModelIDSize]byte
}

// NewHeader builds a header. A vendor longer than 64 bytes is truncated
// byte-exactly; a shorter one is padded with NUL.
func NewHeader(totalSize uint32, checksum [ChecksumSize]byte, vendor string, modelID [ModelIDSize]byte) Header {
	h := Header{
		TotalSize: totalSize,
		Checksum:  checksum,
		ModelID:   modelID,
	}
	copy(h.Vendor[:], vendor)
	return h
}

// VendorString returns the vendor field up to the first NUL.
func (h *Header) VendorString() string {
	if i := bytes.IndexByte(h.Vendor[:], 0); i >= 0 {
		return string(h.Vendor[:i])
	}
	return string(h.Vendor[:])
}

// Encode returns the on-disk form of h.
func (h Header) Encode() [HeaderSize]byte {
	var out [HeaderSize]byte
	encodeHeader(out[:], h)
	return out
}

// DecodeHeader parses exactly HeaderSize bytes.
func DecodeHeader(src []byte) (Header, error) {
	h, ok := decodeHeader(src)
	if !ok {
		return Header{}, ErrHeaderSize
	}
	return h, nil
}

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) != HeaderSize {
		return false
	}
	binary.BigEndian.PutUint32(dst[offTotalSize:], h.TotalSize)
	copy(dst[offChecksum:offVendor], h.Checksum[:])
	copy(dst[offVendor:offModelID], h.Vendor[:])
	copy(dst[offModelID:HeaderSize], h.ModelID[:])
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	if len(src) != HeaderSize {
		return Header{}, false
	}
	var h Header
	h.TotalSize = binary.BigEndian.Uint32(src[offTotalSize:])
	copy(h.Checksum[:], src[offChecksum:offVendor])
	copy(h.Vendor[:], src[offVendor:offModelID])
	copy(h.ModelID[:], src[offModelID:HeaderSize])
	return h, true
}
