package ptn

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Field is a key/value pair of a table entry that the codec does not interpret.
type Field struct {
	Key   string
	Value string
}

// Entry is one line of the partition table.
type Entry struct {
	Name  string
	Base  uint64
	Size  uint64
	Extra []Field
}

// End returns the table-relative offset one past the last payload byte.
func (e Entry) End() uint64 {
	return e.Base + e.Size
}

// Get returns the raw value for key, including the interpreted ones.
func (e Entry) Get(key string) (string, bool) {
	switch key {
	case entryTag:
		return e.Name, true
	case keyBase:
		return formatHex(e.Base), true
	case keySize:
		return formatHex(e.Size), true
	}
	for _, f := range e.Extra {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// ParseMode selects how entries with an odd token count are handled.
type ParseMode int

const (
	// Lenient skips entries with an odd or zero token count.
	Lenient ParseMode = iota
	// Strict rejects entries with an odd token count.
	Strict
)

func (m ParseMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// DecodeOptions controls DecodeTable. The zero value is lenient with the
// standard search window.
type DecodeOptions struct {
	Mode        ParseMode
	SearchLimit int
}

func (o DecodeOptions) searchLimit() int {
	if o.SearchLimit <= 0 {
		return TableSearchLimit
	}
	return o.SearchLimit
}

// DecodeTable parses the table region using the default options.
func DecodeTable(data []byte) ([]Entry, error) {
	return DecodeTableWithOptions(data, DecodeOptions{})
}

// DecodeTableWithOptions parses the table text that precedes the first NUL
// byte in data. The NUL must be found within the search window.
func DecodeTableWithOptions(data []byte, opts DecodeOptions) ([]Entry, error) {
	window := data
	if limit := opts.searchLimit(); len(window) > limit {
		window = window[:limit]
	}
	end := bytes.IndexByte(window, tableTerm)
	if end < 0 {
		return nil, fmt.Errorf("%w: not NUL-terminated within %d bytes", ErrMalformedTable, len(window))
	}

	var entries []Entry
	seen := make(map[string]struct{})
	for i, line := range strings.Split(string(data[:end]), entrySep) {
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens)%2 != 0 {
			if opts.Mode == Strict {
				return nil, fmt.Errorf("%w: entry %d has %d tokens", ErrMalformedTable, i, len(tokens))
			}
			continue
		}
		e, err := parseEntry(tokens)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedTable, i, err)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate partition %q", ErrMalformedTable, e.Name)
		}
		seen[e.Name] = struct{}{}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntry(tokens []string) (Entry, error) {
	var e Entry
	var hasName, hasBase, hasSz bool
	for i := 0; i < len(tokens); i += 2 {
		key, val := tokens[i], tokens[i+1]
		switch key {
		case entryTag:
			e.Name, hasName = val, true
		case keyBase:
			v, err := parseHex(val)
			if err != nil {
				return Entry{}, fmt.Errorf("base %q: %v", val, err)
			}
			e.Base, hasBase = v, true
		case keySize:
			v, err := parseHex(val)
			if err != nil {
				return Entry{}, fmt.Errorf("size %q: %v", val, err)
			}
			e.Size, hasSz = v, true
		default:
			e.Extra = setField(e.Extra, key, val)
		}
	}
	switch {
	case !hasName:
		return Entry{}, fmt.Errorf("missing %s key", entryTag)
	case !hasBase:
		return Entry{}, fmt.Errorf("partition %q: missing base", e.Name)
	case !hasSz:
		return Entry{}, fmt.Errorf("partition %q: missing size", e.Name)
	}
	if err := checkName(e.Name); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// setField replaces an existing key in place so the last value wins.
func setField(fields []Field, key, val string) []Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = val
			return fields
		}
	}
	return append(fields, Field{Key: key, Value: val})
}

// Layout assigns contiguous table-relative offsets to parts, starting right
// after the table region.
func Layout(parts []Partition) []Entry {
	entries := make([]Entry, len(parts))
	off := uint64(TableSize)
	for i, p := range parts {
		size := uint64(len(p.Data))
		entries[i] = Entry{Name: p.Name, Base: off, Size: size}
		off += size
	}
	return entries
}

// EncodeTable lays out parts and encodes the padded table region.
func EncodeTable(parts []Partition) ([]byte, error) {
	return EncodeEntries(Layout(parts))
}

// EncodeEntries encodes entries as written, including their extra fields.
// The text plus terminator must fit inside the decoder's search window so
// that every encoded table decodes again.
func EncodeEntries(entries []Entry) ([]byte, error) {
	var sb strings.Builder
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if err := checkName(e.Name); err != nil {
			return nil, err
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePartition, e.Name)
		}
		seen[e.Name] = struct{}{}

		sb.WriteString(entryTag)
		sb.WriteByte(' ')
		sb.WriteString(e.Name)
		sb.WriteString(" " + keyBase + " ")
		sb.WriteString(formatHex(e.Base))
		sb.WriteString(" " + keySize + " ")
		sb.WriteString(formatHex(e.Size))
		for _, f := range e.Extra {
			if !isToken(f.Key) || !isToken(f.Value) {
				return nil, fmt.Errorf("%w: partition %q: extra field %q=%q", ErrMalformedTable, e.Name, f.Key, f.Value)
			}
			switch f.Key {
			case entryTag, keyBase, keySize:
				return nil, fmt.Errorf("%w: partition %q: reserved extra key %q", ErrMalformedTable, e.Name, f.Key)
			}
			sb.WriteByte(' ')
			sb.WriteString(f.Key)
			sb.WriteByte(' ')
			sb.WriteString(f.Value)
		}
		sb.WriteString(entrySep)
	}

	if sb.Len()+1 > TableSearchLimit {
		return nil, fmt.Errorf("%w: %d bytes of text, limit is %d", ErrTableTooLarge, sb.Len()+1, TableSearchLimit)
	}

	out := bytes.Repeat([]byte{tablePad}, TableSize)
	n := copy(out, sb.String())
	out[n] = tableTerm
	return out, nil
}

func checkName(name string) error {
	if !isToken(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q is not a plain file name", ErrInvalidName, name)
	}
	return nil
}

// isToken reports whether s survives whitespace tokenisation unchanged.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == tableTerm {
			return false
		}
	}
	return true
}

func formatHex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func parseHex(s string) (uint64, error) {
	digits := s
	if len(digits) > 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	return strconv.ParseUint(digits, 16, 64)
}
