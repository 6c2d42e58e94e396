// Command sample_image writes a small fwup-ptn image for manual testing and
// prints its layout as JSON.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

type output struct {
	Path     string      `json:"path"`
	Model    string      `json:"model"`
	Size     int         `json:"size"`
	Checksum string      `json:"checksum"`
	Entries  []ptn.Entry `json:"entries"`
}

func main() {
	path := "sample.bin"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	m, err := ptn.DefaultRegistry().Lookup(ptn.DefaultModelKey)
	if err != nil {
		fail("lookup", err)
	}
	image, entries, err := ptn.Assemble(m, []ptn.Partition{
		{Name: ptn.TableName, Data: []byte("partition table placeholder\n")},
		{Name: "soft-version", Data: []byte("soft_ver:1.0.0\n")},
		{Name: "os-image", Data: bytes.Repeat([]byte{0x27, 0x05, 0x19, 0x56}, 1024)},
		{Name: "file-system", Data: bytes.Repeat([]byte{0x68, 0x73, 0x71, 0x73}, 4096)},
	})
	if err != nil {
		fail("assemble", err)
	}
	if _, err := ptn.Repair(image, m); err != nil {
		fail("repair", err)
	}
	if err := os.WriteFile(path, image, 0o644); err != nil {
		fail("write", err)
	}

	out := output{
		Path:     path,
		Model:    m.Key,
		Size:     len(image),
		Checksum: fmt.Sprintf("%x", image[4:20]),
		Entries:  entries,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fail("encode", err)
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
