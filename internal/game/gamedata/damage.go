package gamedata

import "sort"

// DamageMap maps a damage-type name to an amount or multiplier.
// A missing key reads as the default supplied by the caller.
type DamageMap map[string]float64

// Get returns the value stored for key, or def when key is absent.
func (m DamageMap) Get(key string, def float64) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// Clone returns an independent copy of m. A nil map clones to an empty map.
func (m DamageMap) Clone() DamageMap {
	out := make(DamageMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Add accumulates o into m in place.
//
// Precondition: m must be non-nil.
func (m DamageMap) Add(o DamageMap) {
	for k, v := range o {
		m[k] += v
	}
}

// Mul returns the elementwise product of m and o over the keys of m.
// Keys missing from o read as def.
//
// Postcondition: the result has exactly the keys of m; m and o are unchanged.
func (m DamageMap) Mul(o DamageMap, def float64) DamageMap {
	out := make(DamageMap, len(m))
	for k, v := range m {
		out[k] = v * o.Get(k, def)
	}
	return out
}

// Total returns the sum of all values.
func (m DamageMap) Total() float64 {
	var total float64
	for _, v := range m {
		total += v
	}
	return total
}

// IsZero reports whether every value in m equals zero.
func (m DamageMap) IsZero() bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}

// IsIdentity reports whether every value in m equals one (a no-op multiplier).
func (m DamageMap) IsIdentity() bool {
	for _, v := range m {
		if v != 1 {
			return false
		}
	}
	return true
}

// Keys returns the keys of m in sorted order.
func (m DamageMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
