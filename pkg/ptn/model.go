package ptn

import (
	"fmt"
	"sort"
)

// DefaultModelKey is the model used when the caller does not pick one.
const DefaultModelKey = "c2600"

// DefaultVendor is used for models registered without a vendor string.
const DefaultVendor = "TP-LINK Technologies"

// DefaultPlaceholder is the digest stored in the header while the real
// checksum is computed.
var DefaultPlaceholder = [ChecksumSize]byte{
	0x7a, 0x2b, 0x15, 0xed, 0x9b, 0x98, 0x59, 0x6d,
	0xe5, 0x04, 0xab, 0x44, 0xac, 0x2a, 0x9f, 0x4e,
}

// Model identifies a target device class.
//
// A nil Placeholder or an empty Vendor select the package defaults when the
// model is looked up through a Registry.
type Model struct {
	Key         string
	ID          [ModelIDSize]byte
	Placeholder []byte
	Vendor      string
}

// PlaceholderDigest returns the placeholder as a fixed array, falling back to
// DefaultPlaceholder.
func (m Model) PlaceholderDigest() [ChecksumSize]byte {
	if len(m.Placeholder) != ChecksumSize {
		return DefaultPlaceholder
	}
	var out [ChecksumSize]byte
	copy(out[:], m.Placeholder)
	return out
}

func (m Model) withDefaults() Model {
	if m.Placeholder == nil {
		m.Placeholder = append([]byte(nil), DefaultPlaceholder[:]...)
	}
	if m.Vendor == "" {
		m.Vendor = DefaultVendor
	}
	return m
}

func (m Model) validate() error {
	if m.Key == "" {
		return fmt.Errorf("ptn: model key required")
	}
	if m.Placeholder != nil && len(m.Placeholder) != ChecksumSize {
		return fmt.Errorf("ptn: model %q: placeholder must be %d bytes, got %d", m.Key, ChecksumSize, len(m.Placeholder))
	}
	if len(m.Vendor) > VendorSize {
		return fmt.Errorf("ptn: model %q: vendor longer than %d bytes", m.Key, VendorSize)
	}
	return nil
}

var builtinModels = []Model{
	{
		Key: DefaultModelKey,
		ID:  [ModelIDSize]byte{0x00, 0x00, 0x00, 0x00, 0x26, 0x00, 0x00, 0x01},
	},
}

// Registry is a read-only set of models keyed by Model.Key.
type Registry struct {
	models map[string]Model
}

// NewRegistry builds a registry. Later models replace earlier ones with the
// same key.
func NewRegistry(models ...Model) (*Registry, error) {
	r := &Registry{models: make(map[string]Model, len(models))}
	for _, m := range models {
		if err := m.validate(); err != nil {
			return nil, err
		}
		r.models[m.Key] = m
	}
	return r, nil
}

// DefaultRegistry returns a registry holding the built-in models.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(builtinModels...)
	if err != nil {
		panic(err)
	}
	return r
}

// With returns a new registry holding r's models plus extra.
func (r *Registry) With(extra ...Model) (*Registry, error) {
	all := make([]Model, 0, r.Len()+len(extra))
	for _, k := range r.Keys() {
		all = append(all, r.models[k])
	}
	all = append(all, extra...)
	return NewRegistry(all...)
}

// Lookup resolves key and fills in default placeholder and vendor.
func (r *Registry) Lookup(key string) (Model, error) {
	if r != nil {
		if m, ok := r.models[key]; ok {
			return m.withDefaults(), nil
		}
	}
	return Model{}, fmt.Errorf("%w: %q", ErrUnsupportedModel, key)
}

// Keys returns the registered model keys in sorted order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.models))
	for k := range r.models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of models in r.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.models)
}
