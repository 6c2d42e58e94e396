package ptn

import (
	"bytes"
	"crypto/md5"
	"sort"
)

// DiffKind classifies a partition difference between two images.
type DiffKind int

const (
	DiffSame DiffKind = iota
	DiffAdded
	DiffRemoved
	DiffMoved
	DiffChanged
)

func (k DiffKind) String() string {
	switch k {
	case DiffSame:
		return "same"
	case DiffAdded:
		return "added"
	case DiffRemoved:
		return "removed"
	case DiffMoved:
		return "moved"
	case DiffChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// PartitionDiff compares one partition name across two images. A and B are
// nil when the partition is absent from that side.
type PartitionDiff struct {
	Name string
	Kind DiffKind
	A    *Entry
	B    *Entry
	// FirstDiff is the offset of the first differing payload byte, or -1.
	FirstDiff int64
	SumA      [md5.Size]byte
	SumB      [md5.Size]byte
}

// Diff compares the partitions of a and b by name. Payloads that fall
// outside either image are reported as changed.
func Diff(a, b *Image) []PartitionDiff {
	names := make(map[string]struct{}, len(a.Entries)+len(b.Entries))
	for _, e := range a.Entries {
		names[e.Name] = struct{}{}
	}
	for _, e := range b.Entries {
		names[e.Name] = struct{}{}
	}

	out := make([]PartitionDiff, 0, len(names))
	for name := range names {
		d := PartitionDiff{Name: name, FirstDiff: -1}
		ea, okA := a.Entry(name)
		eb, okB := b.Entry(name)
		if okA {
			d.A = &ea
		}
		if okB {
			d.B = &eb
		}
		switch {
		case !okA:
			d.Kind = DiffAdded
			d.SumB = payloadSum(b, eb)
		case !okB:
			d.Kind = DiffRemoved
			d.SumA = payloadSum(a, ea)
		default:
			d.Kind, d.FirstDiff = comparePayloads(a, ea, b, eb)
			d.SumA = payloadSum(a, ea)
			d.SumB = payloadSum(b, eb)
		}
		out = append(out, d)
	}

	order := orderIndex(a, b)
	sort.Slice(out, func(i, j int) bool {
		oi, oj := order[out[i].Name], order[out[j].Name]
		if oi != oj {
			return oi < oj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func comparePayloads(a *Image, ea Entry, b *Image, eb Entry) (DiffKind, int64) {
	pa, errA := a.Payload(ea)
	pb, errB := b.Payload(eb)
	if errA != nil || errB != nil {
		return DiffChanged, 0
	}
	if off := firstDiff(pa, pb); off >= 0 {
		return DiffChanged, off
	}
	if ea.Base != eb.Base {
		return DiffMoved, -1
	}
	return DiffSame, -1
}

func firstDiff(a, b []byte) int64 {
	if bytes.Equal(a, b) {
		return -1
	}
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return int64(i)
		}
	}
	return int64(n)
}

func payloadSum(img *Image, e Entry) [md5.Size]byte {
	p, err := img.Payload(e)
	if err != nil {
		return [md5.Size]byte{}
	}
	return md5.Sum(p)
}

// orderIndex ranks names by their position in a, then b.
func orderIndex(a, b *Image) map[string]int {
	idx := make(map[string]int, len(a.Entries)+len(b.Entries))
	for i, e := range a.Entries {
		idx[e.Name] = i
	}
	for i, e := range b.Entries {
		if _, ok := idx[e.Name]; !ok {
			idx[e.Name] = len(a.Entries) + i
		}
	}
	return idx
}
