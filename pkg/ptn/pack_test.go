package ptn

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePartitions(t *testing.T, dir string, parts map[string][]byte) {
	t.Helper()
	for name, data := range parts {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write partition %s: %v", name, err)
		}
	}
}

func TestPackScenario(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	table := []byte("placeholder table contents")
	osImage := bytes.Repeat([]byte{0xaa}, 100)
	fileSystem := bytes.Repeat([]byte{0xbb}, 200)
	writePartitions(t, inDir, map[string][]byte{
		TableName:     table,
		"os-image":    osImage,
		"file-system": fileSystem,
	})
	outPath := filepath.Join(t.TempDir(), "fw.bin")

	res, err := Pack(PackOptions{InputDir: inDir, OutputPath: outPath})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	image, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	wantTotal := HeaderSize + TableSize + len(table) + 100 + 200
	if len(image) != wantTotal {
		t.Fatalf("image length: got %d want %d", len(image), wantTotal)
	}
	if got := binary.BigEndian.Uint32(image[0:4]); got != uint32(wantTotal) {
		t.Fatalf("header total size: got %d want %d", got, wantTotal)
	}
	if res.TotalSize != uint32(wantTotal) {
		t.Fatalf("result total size: got %d want %d", res.TotalSize, wantTotal)
	}

	img, err := Parse(image, DecodeOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(img.Entries) != 3 {
		t.Fatalf("entry count: got %d want 3", len(img.Entries))
	}
	// ReadDir order is lexical: file-system before os-image.
	wantBases := map[string]uint64{
		TableName:     2048,
		"file-system": 2048 + uint64(len(table)),
		"os-image":    2048 + uint64(len(table)) + 200,
	}
	if img.Entries[0].Name != TableName {
		t.Fatalf("first entry: got %q want %q", img.Entries[0].Name, TableName)
	}
	for _, e := range img.Entries {
		if e.Base != wantBases[e.Name] {
			t.Fatalf("%s base: got %d want %d", e.Name, e.Base, wantBases[e.Name])
		}
	}

	m := testModel(t)
	stored, expected, err := Digest(image, m)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if stored != expected {
		t.Fatalf("packed image digest mismatch: stored %x expected %x", stored, expected)
	}
	if res.Checksum != stored {
		t.Fatalf("result checksum: got %x want %x", res.Checksum, stored)
	}
	if img.Header.VendorString() != DefaultVendor {
		t.Fatalf("vendor: got %q want %q", img.Header.VendorString(), DefaultVendor)
	}
	if img.Header.ModelID != m.ID {
		t.Fatalf("model id: got %x want %x", img.Header.ModelID, m.ID)
	}
	if !img.SizeConsistent() {
		t.Fatalf("header size should match image length")
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	parts := map[string][]byte{
		TableName: {0x00, 0x01},
		"boot":    bytes.Repeat([]byte{0x11}, 513),
		"empty":   {},
		"rootfs":  bytes.Repeat([]byte{0x22}, 4097),
	}
	writePartitions(t, inDir, parts)
	if err := os.Mkdir(filepath.Join(inDir, "subdir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outPath := filepath.Join(t.TempDir(), "fw.bin")
	if _, err := Pack(PackOptions{InputDir: inDir, OutputPath: outPath}); err != nil {
		t.Fatalf("pack: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "nested", "out")
	entries, err := UnpackFile(outPath, outDir, DecodeOptions{})
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(entries) != len(parts) {
		t.Fatalf("entry count: got %d want %d", len(entries), len(parts))
	}
	for name, want := range parts {
		got, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s content mismatch: got %d bytes want %d", name, len(got), len(want))
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "subdir")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("directories must not be packed as partitions")
	}
}

func TestPackMissingTablePartition(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	writePartitions(t, inDir, map[string][]byte{"os-image": {1, 2, 3}})
	outPath := filepath.Join(t.TempDir(), "fw.bin")

	_, err := Pack(PackOptions{InputDir: inDir, OutputPath: outPath})
	if !errors.Is(err, ErrMissingTablePartition) {
		t.Fatalf("expected ErrMissingTablePartition, got %v", err)
	}
	if _, err := os.Stat(outPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no output should be written, stat err=%v", err)
	}
}

func TestPackUnsupportedModel(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "fw.bin")
	_, err := Pack(PackOptions{
		Model:      "no-such-router",
		InputDir:   filepath.Join(t.TempDir(), "does-not-exist"),
		OutputPath: outPath,
	})
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel before any I/O, got %v", err)
	}
}

func TestPackInjectedModel(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(Model{Key: "lab", ID: [ModelIDSize]byte{'L', 'A', 'B'}, Vendor: "Lab"})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	inDir := t.TempDir()
	writePartitions(t, inDir, map[string][]byte{TableName: {0}})
	outPath := filepath.Join(t.TempDir(), "fw.bin")

	res, err := Pack(PackOptions{Registry: reg, Model: "lab", InputDir: inDir, OutputPath: outPath})
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	ok, err := CheckFile(outPath, res.Model)
	if err != nil || !ok {
		t.Fatalf("check: ok=%v err=%v", ok, err)
	}
	img, err := Open(outPath, DecodeOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = img.Close() }()
	if img.Header.VendorString() != "Lab" {
		t.Fatalf("vendor: got %q want Lab", img.Header.VendorString())
	}
}

func TestPackOverwritesExistingOutput(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	writePartitions(t, inDir, map[string][]byte{TableName: {1}})
	outDir := t.TempDir()
	outPath := filepath.Join(outDir, "fw.bin")
	if err := os.WriteFile(outPath, bytes.Repeat([]byte{0x55}, 10000), 0o644); err != nil {
		t.Fatalf("seed output: %v", err)
	}

	if _, err := Pack(PackOptions{InputDir: inDir, OutputPath: outPath}); err != nil {
		t.Fatalf("pack: %v", err)
	}
	st, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != PayloadOffset+1 {
		t.Fatalf("output size: got %d want %d", st.Size(), PayloadOffset+1)
	}
	ents, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(ents) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(ents))
	}
}

func TestOrderPartitions(t *testing.T) {
	t.Parallel()

	in := []Partition{{Name: "a"}, {Name: "b"}, {Name: TableName}, {Name: "c"}}
	out, err := OrderPartitions(in)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	want := []string{TableName, "a", "b", "c"}
	for i, p := range out {
		if p.Name != want[i] {
			t.Fatalf("order %d: got %q want %q", i, p.Name, want[i])
		}
	}
	if in[0].Name != "a" {
		t.Fatalf("input slice must not be reordered")
	}

	if _, err := OrderPartitions([]Partition{{Name: "a"}}); !errors.Is(err, ErrMissingTablePartition) {
		t.Fatalf("expected ErrMissingTablePartition, got %v", err)
	}
	if _, _, err := Assemble(testModel(t), []Partition{{Name: "a"}, {Name: TableName}}); !errors.Is(err, ErrMissingTablePartition) {
		t.Fatalf("assemble: expected ErrMissingTablePartition, got %v", err)
	}
}
