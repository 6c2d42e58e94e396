package ptn

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"
)

// Digest returns the digest stored in image and the digest it should hold.
//
// The expected digest is MD5 over the model placeholder followed by every
// byte after the checksum field. The total size field is not covered.
func Digest(image []byte, m Model) (stored, expected [ChecksumSize]byte, err error) {
	if len(image) < offVendor {
		return stored, expected, fmt.Errorf("%w: %d bytes is too short for a header", ErrCorruptImage, len(image))
	}
	copy(stored[:], image[offChecksum:offVendor])

	placeholder := m.PlaceholderDigest()
	h := md5.New()
	h.Write(placeholder[:])
	h.Write(image[offVendor:])
	copy(expected[:], h.Sum(nil))
	return stored, expected, nil
}

// Verify reports whether the stored digest matches.
func Verify(image []byte, m Model) (bool, error) {
	stored, expected, err := Digest(image, m)
	if err != nil {
		return false, err
	}
	return stored == expected, nil
}

// Repair writes the expected digest into image and reports whether any byte
// changed.
func Repair(image []byte, m Model) (bool, error) {
	stored, expected, err := Digest(image, m)
	if err != nil {
		return false, err
	}
	if stored == expected {
		return false, nil
	}
	copy(image[offChecksum:offVendor], expected[:])
	return true, nil
}

// DigestFile is Digest for an image on disk. The file is streamed, not
// loaded whole.
func DigestFile(path string, m Model) (stored, expected [ChecksumSize]byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return stored, expected, err
	}
	defer func() { _ = f.Close() }()
	return digestReader(f, m)
}

func digestReader(r io.Reader, m Model) (stored, expected [ChecksumSize]byte, err error) {
	var prefix [offVendor]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: too short for a header", ErrCorruptImage)
		}
		return stored, expected, err
	}
	copy(stored[:], prefix[offChecksum:])

	placeholder := m.PlaceholderDigest()
	h := md5.New()
	h.Write(placeholder[:])
	if _, err := io.Copy(h, r); err != nil {
		return stored, expected, err
	}
	copy(expected[:], h.Sum(nil))
	return stored, expected, nil
}

// CheckFile reports whether the image at path carries a valid digest.
func CheckFile(path string, m Model) (bool, error) {
	stored, expected, err := DigestFile(path, m)
	if err != nil {
		return false, err
	}
	return stored == expected, nil
}

// FixFile overwrites the digest field of the image at path when it does not
// match. Repeated calls are no-ops once the digest matches.
func FixFile(path string, m Model) (changed bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	stored, expected, err := digestReader(f, m)
	if err != nil {
		return false, err
	}
	if bytes.Equal(stored[:], expected[:]) {
		return false, nil
	}
	if _, err := f.WriteAt(expected[:], offChecksum); err != nil {
		return false, err
	}
	return true, nil
}
