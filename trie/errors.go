package trie

import "github.com/pkg/errors"

// errUnknownKind guards against a corrupt node store: a node kind byte
// that doesn't decode to one of Leaf/Edge/Binary, or a Binary node
// reached with no path bits left to test.
var errUnknownKind = errors.New("trie: unrecognized node shape")
