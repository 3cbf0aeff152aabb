// Package config loads and validates the declarative cluster description
// consumed by the config-generation pipeline.
//
// A cluster is described either by a key-value declaration file (the format
// used in cluster.env) or by an equivalent YAML document. Both forms decode
// into the same ClusterSpec, which is validated once at load time and
// immutable afterwards.
package config
