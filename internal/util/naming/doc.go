// Package naming defines the positional naming scheme for generated
// cluster artifacts.
package naming
