// Package secretgen produces the generated-secret patch fragments: container
// registry auth and the rendered CNI manifest embedded as an inline manifest.
//
// Credentials are explicit inputs to the generator; CredentialsFromEnv is
// the single place they are bridged in from the environment, and neither the
// token nor its encoded form is ever logged. Fragments are written only to an
// ephemeral output directory, structurally separate from committed patch
// storage.
package secretgen
