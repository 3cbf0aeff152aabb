// Package patch models machine-config patch fragments and their merge
// semantics.
//
// A fragment is a named, classified unit of configuration held as structured
// data rather than raw text. Fragments are layered in a fixed class order
// (committed, then generated-secret, then per-node) so that node-specific
// network identity always wins, and merged with a recursive map merge where
// lists and scalars are replaced wholesale by the later fragment.
package patch
