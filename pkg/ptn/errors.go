package ptn

import "errors"

var (
	ErrUnsupportedModel      = errors.New("ptn: unsupported model")
	ErrMalformedTable        = errors.New("ptn: malformed partition table")
	ErrTableTooLarge         = errors.New("ptn: partition table too large")
	ErrMissingTablePartition = errors.New("ptn: missing " + TableName + " partition")
	ErrDuplicatePartition    = errors.New("ptn: duplicate partition name")
	ErrInvalidName           = errors.New("ptn: invalid partition name")
	ErrHeaderSize            = errors.New("ptn: header must be exactly 92 bytes")
	ErrCorruptImage          = errors.New("ptn: corrupt image")
	ErrImageTooLarge         = errors.New("ptn: image exceeds 4 GiB")
)
