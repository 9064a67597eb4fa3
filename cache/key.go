package cache

import "strings"

// KeySeparator defines the delimiter used between cache key tokens when a
// key is flattened to a string.
const KeySeparator = "::"

// Key is an ordered sequence of tokens addressing one cache entry. Keys
// are the sole identity a cached result has: two keys address the same
// entry exactly when all their tokens are equal.
//
// Invalidation works on prefixes: the key [users, http, 42] is covered by
// the prefixes [users] and [users, http].
type Key []string

// NewKey builds a key from the given tokens.
func NewKey(tokens ...string) Key {
	return Key(tokens)
}

// String flattens the key into a single string for use with map lookups
// and single-flight grouping.
func (k Key) String() string {
	return strings.Join(k, KeySeparator)
}

// Equal reports whether both keys have identical tokens.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix matches the leading tokens of k. Every
// key is covered by the empty prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Append returns a new key with the extra tokens added. The receiver is
// never mutated; keys are shared freely between adapters.
func (k Key) Append(tokens ...string) Key {
	next := make(Key, 0, len(k)+len(tokens))
	next = append(next, k...)
	return append(next, tokens...)
}

// First returns the leading token, or the empty string for an empty key.
// The leading token conventionally names the entity kind.
func (k Key) First() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}
