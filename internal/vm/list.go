package vm

// List is an ordered sequence of values plus an associative map from
// string/path/object/resource keys to values. Positional indices are
// 1-indexed. Two event hooks fire on mutation: OnAssigned(key, value) and
// BeforeRemoved(key, value); metaobjects (args, contents) register these at
// construction time.
type List struct {
	items   []Value
	assoc   map[assocKey]Value
	assocOk map[assocKey]bool // presence set, parallel to assoc for zero-Value entries

	OnAssigned    func(key, value Value)
	BeforeRemoved func(key, value Value)
}

// assocKey is a comparable projection of the subset of Value variants legal
// as associative-map keys (string/path/object/resource).
type assocKey struct {
	kind ValueType
	str  string
	obj  *Instance
	res  *Resource
}

func assocKeyOf(v Value) (assocKey, bool) {
	switch v.Type {
	case ValString:
		return assocKey{kind: ValString, str: v.AsString()}, true
	case ValPath:
		return assocKey{kind: ValPath, str: v.AsPath().String()}, true
	case ValObject:
		return assocKey{kind: ValObject, obj: v.AsObject()}, true
	case ValResource:
		return assocKey{kind: ValResource, res: v.AsResource()}, true
	default:
		return assocKey{}, false
	}
}

// NewList creates an empty list.
func NewList() *List {
	return &List{assoc: make(map[assocKey]Value), assocOk: make(map[assocKey]bool)}
}

// Len returns the positional length.
func (l *List) Len() int { return len(l.items) }

// Items returns the positional sequence (read-only view, callers must not
// mutate the returned slice).
func (l *List) Items() []Value { return l.items }

// Get resolves key: Integer -> 1-indexed positional lookup; string/path/
// object/resource -> associative map, missing returns Null. Any other
// integer key (out of 1..len) fails TypeMismatch.
func (l *List) Get(key Value) (Value, error) {
	if key.Type == ValInteger {
		i := int(key.AsInt())
		if i < 1 || i > len(l.items) {
			return Value{}, &TypeMismatchError{Context: "list index", Value: key}
		}
		return l.items[i-1], nil
	}
	ak, ok := assocKeyOf(key)
	if !ok {
		return Value{}, &TypeMismatchError{Context: "list key", Value: key}
	}
	if v, found := l.assoc[ak]; found {
		return v, nil
	}
	return NullVal(), nil
}

// Set fires OnAssigned. An associative set also inserts the key into the
// positional sequence if it is not already present; an integer set mutates
// the positional slot in place.
func (l *List) Set(key, v Value) error {
	if key.Type == ValInteger {
		i := int(key.AsInt())
		if i < 1 || i > len(l.items) {
			return &TypeMismatchError{Context: "list index", Value: key}
		}
		l.items[i-1] = v
		if l.OnAssigned != nil {
			l.OnAssigned(key, v)
		}
		return nil
	}
	ak, ok := assocKeyOf(key)
	if !ok {
		return &TypeMismatchError{Context: "list key", Value: key}
	}
	if _, present := l.assocOk[ak]; !present {
		l.items = append(l.items, key)
	}
	l.assoc[ak] = v
	l.assocOk[ak] = true
	if l.OnAssigned != nil {
		l.OnAssigned(key, v)
	}
	return nil
}

// Add appends to the positional sequence and fires OnAssigned(new_len, v).
func (l *List) Add(v Value) {
	l.items = append(l.items, v)
	if l.OnAssigned != nil {
		l.OnAssigned(IntVal(int32(len(l.items))), v)
	}
}

// Remove removes the first positional occurrence of v, firing BeforeRemoved.
// Returns true if something was removed.
func (l *List) Remove(v Value) bool {
	for i, item := range l.items {
		if item.Equals(v) {
			if l.BeforeRemoved != nil {
				l.BeforeRemoved(IntVal(int32(i+1)), item)
			}
			l.items = append(l.items[:i], l.items[i+1:]...)
			if ak, ok := assocKeyOf(v); ok {
				delete(l.assoc, ak)
				delete(l.assocOk, ak)
			}
			return true
		}
	}
	return false
}

// resolveEnd applies the "end=0 means up to length" convention, inclusive,
// matching Cut/Join/FindValue's consistent treatment (the Open Question on
// exclusive vs inclusive bounds is resolved as inclusive throughout).
func (l *List) resolveEnd(end int) int {
	if end == 0 || end > len(l.items) {
		return len(l.items)
	}
	return end
}

// Cut removes the positional range [start, end] (1-indexed, inclusive,
// end=0 meaning "to length"), in reverse order, firing BeforeRemoved for
// each removed element.
func (l *List) Cut(start, end int) {
	end = l.resolveEnd(end)
	if start < 1 || start > end {
		return
	}
	for i := end; i >= start; i-- {
		if i > len(l.items) {
			continue
		}
		v := l.items[i-1]
		if l.BeforeRemoved != nil {
			l.BeforeRemoved(IntVal(int32(i)), v)
		}
		if ak, ok := assocKeyOf(v); ok {
			delete(l.assoc, ak)
			delete(l.assocOk, ak)
		}
		l.items = append(l.items[:i-1], l.items[i:]...)
	}
}

// Copy produces an independent clone of the positional slice [start, end]
// plus the full associative map.
func (l *List) Copy(start, end int) *List {
	end = l.resolveEnd(end)
	out := NewList()
	if start >= 1 && start <= end {
		out.items = append(out.items, l.items[start-1:end]...)
	}
	for k, v := range l.assoc {
		out.assoc[k] = v
		out.assocOk[k] = true
	}
	return out
}

// Find returns the 1-indexed position of v within [start, end] (inclusive,
// end=0 meaning "to length"), or 0 if absent.
func (l *List) Find(v Value, start, end int) int {
	if start < 1 {
		start = 1
	}
	end = l.resolveEnd(end)
	for i := start; i <= end; i++ {
		if i < 1 || i > len(l.items) {
			continue
		}
		if l.items[i-1].Equals(v) {
			return i
		}
	}
	return 0
}

// Join concatenates Stringify(item) for items in [start, end] (inclusive,
// end=0 meaning "to length"), separated by glue.
func (l *List) Join(glue string, start, end int) string {
	end = l.resolveEnd(end)
	if start < 1 {
		start = 1
	}
	out := ""
	for i := start; i <= end; i++ {
		if i > start {
			out += glue
		}
		out += l.items[i-1].Stringify()
	}
	return out
}

// Snapshot produces an iteration-stable copy of the positional sequence,
// used by CreateListEnumerator so mutations during EnumerateList are
// invisible to the running iteration.
func (l *List) Snapshot() []Value {
	out := make([]Value, len(l.items))
	copy(out, l.items)
	return out
}
