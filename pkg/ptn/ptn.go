// Package ptn implements the fwup-ptn firmware image container.
//
// An image is a fixed 92-byte header, a fixed 2048-byte text partition table
// and the partition payloads concatenated in table order. Table offsets are
// relative to the start of the table region, so the first payload lives at
// base 0x800.
package ptn

// Image layout constants must never change.
const (
	// HeaderSize is the size of the binary image header.
	HeaderSize = 0x5c

	// TableSize is the size of the padded partition table region.
	TableSize = 0x800

	// TableSearchLimit bounds the scan for the table NUL terminator.
	TableSearchLimit = 0x400

	// PayloadOffset is the absolute file offset of the first payload byte.
	PayloadOffset = HeaderSize + TableSize

	// TableName names the partition that must lead every packed image.
	TableName = "partition-table"
)

const (
	entryTag  = "fwup-ptn"
	entrySep  = "\t\r\n"
	keyBase   = "base"
	keySize   = "size"
	tablePad  = 0xff
	tableTerm = 0x00
)
