// Package assemble turns merged patch layers into fully resolved per-node
// machine configs plus a cluster client credential bundle.
//
// The external config compiler is behind a small interface; the production
// implementation wraps the Talos machinery config generator, and tests use a
// fake. Output files are written atomically (temp file plus rename) so a
// machine config is never observed half-written.
package assemble
