package value

import "hash/fnv"

// Interner deduplicates strings so that equal contents share one
// StringObject. After interning, string equality is pointer equality.
type Interner struct {
	strings map[string]*StringObject
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{strings: make(map[string]*StringObject)}
}

// Intern returns the canonical StringObject for s.
func (in *Interner) Intern(s string) *StringObject {
	obj, _ := in.Insert(s)
	return obj
}

// Insert returns the canonical StringObject for s and whether it was
// allocated by this call.
func (in *Interner) Insert(s string) (*StringObject, bool) {
	if obj, ok := in.strings[s]; ok {
		return obj, false
	}
	obj := &StringObject{Chars: s, Hash: HashString(s)}
	in.strings[s] = obj
	return obj, true
}

// Lookup returns the interned object for s without inserting.
func (in *Interner) Lookup(s string) (*StringObject, bool) {
	obj, ok := in.strings[s]
	return obj, ok
}

// Len returns the number of interned strings.
func (in *Interner) Len() int {
	return len(in.strings)
}

// Merge adds every string of other that is not yet present. Strings
// already present keep their existing object.
func (in *Interner) Merge(other *Interner) {
	if other == nil || other == in {
		return
	}
	for s, obj := range other.strings {
		if _, ok := in.strings[s]; !ok {
			in.strings[s] = obj
		}
	}
}

// Clone returns a copy holding the same objects.
func (in *Interner) Clone() *Interner {
	c := &Interner{strings: make(map[string]*StringObject, len(in.strings))}
	for s, obj := range in.strings {
		c.strings[s] = obj
	}
	return c
}

// Each calls fn for every interned string, in no particular order.
func (in *Interner) Each(fn func(*StringObject)) {
	for _, obj := range in.strings {
		fn(obj)
	}
}

// HashString is 32-bit FNV-1a.
func HashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
