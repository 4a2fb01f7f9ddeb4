package valueobjects

import "strings"

// edgeKeySeparator never occurs in a CMS document id, so splitting a key at
// its first '>' recovers the pair.
const edgeKeySeparator = "->"

// EdgeKey is the composite identity of a relationship edge. It is derived
// only from the ordered (source, target) pair so re-inserting the same pair
// always lands on the same key.
type EdgeKey string

// NewEdgeKey derives the key for source -> target
func NewEdgeKey(source, target PersonID) EdgeKey {
	var b strings.Builder
	b.Grow(len(source) + len(edgeKeySeparator) + len(target))
	b.WriteString(string(source))
	b.WriteString(edgeKeySeparator)
	b.WriteString(string(target))
	return EdgeKey(b.String())
}

// String returns the raw key
func (k EdgeKey) String() string {
	return string(k)
}
