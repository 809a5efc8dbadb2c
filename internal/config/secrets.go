package config

import "os"

// Secrets resolves credential names at startup. Absence is a normal
// condition: the adapter that needed the credential reports failure
// without a network call.
type Secrets interface {
	Get(name string) (string, bool)
}

// EnvSecrets reads credentials from the process environment.
type EnvSecrets struct{}

func (EnvSecrets) Get(name string) (string, bool) {
	v := os.Getenv(name)
	return v, v != ""
}

// StaticSecrets serves a fixed map. Test double.
type StaticSecrets map[string]string

func (s StaticSecrets) Get(name string) (string, bool) {
	v, ok := s[name]
	return v, ok && v != ""
}
