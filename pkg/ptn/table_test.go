package ptn

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEncodeTableFormat(t *testing.T) {
	t.Parallel()

	parts := []Partition{
		{Name: TableName, Data: make([]byte, 0x10)},
		{Name: "os-image", Data: make([]byte, 100)},
	}
	raw, err := EncodeTable(parts)
	if err != nil {
		t.Fatalf("encode table: %v", err)
	}
	if len(raw) != TableSize {
		t.Fatalf("table size: got %d want %d", len(raw), TableSize)
	}

	want := "fwup-ptn partition-table base 0x800 size 0x10\t\r\n" +
		"fwup-ptn os-image base 0x810 size 0x64\t\r\n"
	if got := string(raw[:len(want)]); got != want {
		t.Fatalf("table text mismatch:\n got %q\nwant %q", got, want)
	}
	if raw[len(want)] != 0 {
		t.Fatalf("missing NUL terminator, got %#x", raw[len(want)])
	}
	if !bytes.Equal(raw[len(want)+1:], bytes.Repeat([]byte{0xff}, TableSize-len(want)-1)) {
		t.Fatalf("table not padded with 0xff")
	}
}

func TestTableOffsetsContiguous(t *testing.T) {
	t.Parallel()

	parts := []Partition{
		{Name: TableName, Data: []byte("x")},
		{Name: "a", Data: make([]byte, 7)},
		{Name: "b"},
		{Name: "c", Data: make([]byte, 4096)},
	}
	raw, err := EncodeTable(parts)
	if err != nil {
		t.Fatalf("encode table: %v", err)
	}
	entries, err := DecodeTable(raw)
	if err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(entries) != len(parts) {
		t.Fatalf("entry count: got %d want %d", len(entries), len(parts))
	}
	if entries[0].Base != TableSize {
		t.Fatalf("first base: got %#x want %#x", entries[0].Base, TableSize)
	}
	for i := range entries {
		if entries[i].Name != parts[i].Name {
			t.Fatalf("name %d: got %q want %q", i, entries[i].Name, parts[i].Name)
		}
		if entries[i].Size != uint64(len(parts[i].Data)) {
			t.Fatalf("size %d: got %d want %d", i, entries[i].Size, len(parts[i].Data))
		}
		if i > 0 && entries[i].Base != entries[i-1].End() {
			t.Fatalf("entry %d not contiguous: base %#x, previous end %#x", i, entries[i].Base, entries[i-1].End())
		}
	}
}

func tableRegion(text string) []byte {
	out := bytes.Repeat([]byte{0xff}, TableSize)
	n := copy(out, text)
	out[n] = 0
	return out
}

func TestDecodeTablePreservesExtraFields(t *testing.T) {
	t.Parallel()

	raw := tableRegion("fwup-ptn kernel base 0x800 size 0x20 flags ro name boot\t\r\n")
	entries, err := DecodeTable(raw)
	if err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entry count: got %d want 1", len(entries))
	}
	e := entries[0]
	if e.Name != "kernel" || e.Base != 0x800 || e.Size != 0x20 {
		t.Fatalf("entry mismatch: %+v", e)
	}
	want := []Field{{Key: "flags", Value: "ro"}, {Key: "name", Value: "boot"}}
	if len(e.Extra) != len(want) {
		t.Fatalf("extra fields: got %+v want %+v", e.Extra, want)
	}
	for i := range want {
		if e.Extra[i] != want[i] {
			t.Fatalf("extra %d: got %+v want %+v", i, e.Extra[i], want[i])
		}
	}
	if v, ok := e.Get("flags"); !ok || v != "ro" {
		t.Fatalf("Get(flags): got %q %v", v, ok)
	}
	if v, ok := e.Get("base"); !ok || v != "0x800" {
		t.Fatalf("Get(base): got %q %v", v, ok)
	}

	again, err := EncodeEntries(entries)
	if err != nil {
		t.Fatalf("encode entries: %v", err)
	}
	if !bytes.Equal(again, raw) {
		t.Fatalf("extra fields did not round-trip:\n got %q\nwant %q", again[:80], raw[:80])
	}
}

func TestDecodeTableLenientSkipsOddEntries(t *testing.T) {
	t.Parallel()

	raw := tableRegion("fwup-ptn a base 0x800 size 0x1\t\r\n" +
		"fwup-ptn broken base\t\r\n" +
		"   \t\r\n" +
		"fwup-ptn b base 0x801 size 0x2\t\r\n")

	entries, err := DecodeTable(raw)
	if err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a" || entries[1].Name != "b" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	_, err = DecodeTableWithOptions(raw, DecodeOptions{Mode: Strict})
	if !errors.Is(err, ErrMalformedTable) {
		t.Fatalf("strict decode: expected ErrMalformedTable, got %v", err)
	}
}

func TestDecodeTableNULOutsideWindow(t *testing.T) {
	t.Parallel()

	text := "fwup-ptn a base 0x800 size 0x1" + strings.Repeat(" ", TableSearchLimit)
	raw := tableRegion(text)
	if _, err := DecodeTable(raw); !errors.Is(err, ErrMalformedTable) {
		t.Fatalf("expected ErrMalformedTable, got %v", err)
	}

	if _, err := DecodeTable(bytes.Repeat([]byte{0xff}, TableSize)); !errors.Is(err, ErrMalformedTable) {
		t.Fatalf("unterminated table: expected ErrMalformedTable, got %v", err)
	}
}

func TestDecodeTableNULAtWindowEdge(t *testing.T) {
	t.Parallel()

	line := "fwup-ptn a base 0x800 size 0x1\t\r\n"
	text := line + strings.Repeat(" ", TableSearchLimit-1-len(line))
	raw := tableRegion(text)
	if raw[TableSearchLimit-1] != 0 {
		t.Fatalf("test setup: NUL not at last window byte")
	}
	entries, err := DecodeTable(raw)
	if err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entry count: got %d want 1", len(entries))
	}
}

func TestDecodeTableRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"bad hex", "fwup-ptn a base 0xzz size 0x1\t\r\n"},
		{"missing size", "fwup-ptn a base 0x800 kind raw\t\r\n"},
		{"missing name", "part a base 0x800 size 0x1\t\r\n"},
		{"duplicate", "fwup-ptn a base 0x800 size 0x1\t\r\nfwup-ptn a base 0x801 size 0x1\t\r\n"},
		{"path name", "fwup-ptn ../a base 0x800 size 0x1\t\r\n"},
	}
	for _, tc := range tests {
		if _, err := DecodeTable(tableRegion(tc.text)); !errors.Is(err, ErrMalformedTable) {
			t.Errorf("%s: expected ErrMalformedTable, got %v", tc.name, err)
		}
	}
}

func TestDecodeTableHexWithoutPrefix(t *testing.T) {
	t.Parallel()

	entries, err := DecodeTable(tableRegion("fwup-ptn a base 800 size 1F\t\r\n"))
	if err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if entries[0].Base != 0x800 || entries[0].Size != 0x1f {
		t.Fatalf("hex parse mismatch: %+v", entries[0])
	}
}

func TestEncodeTableTooLarge(t *testing.T) {
	t.Parallel()

	var parts []Partition
	for i := 0; i < 40; i++ {
		parts = append(parts, Partition{Name: strings.Repeat("p", 20) + string(rune('a'+i%26)) + string(rune('a'+i/26))})
	}
	if _, err := EncodeTable(parts); !errors.Is(err, ErrTableTooLarge) {
		t.Fatalf("expected ErrTableTooLarge, got %v", err)
	}
}

func TestEncodeTableRejectsBadNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "has space", "a/b", "..", "tab\tname"} {
		_, err := EncodeTable([]Partition{{Name: name}})
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}

	_, err := EncodeTable([]Partition{{Name: "a"}, {Name: "a"}})
	if !errors.Is(err, ErrDuplicatePartition) {
		t.Fatalf("expected ErrDuplicatePartition, got %v", err)
	}
}
