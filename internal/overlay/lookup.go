package overlay

import "os"

// Lookup resolves an environment variable. The boolean reports whether the
// variable is set; a set variable may hold the empty string.
type Lookup func(name string) (string, bool)

// OSLookup reads the process environment.
func OSLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapLookup serves variables from env. The map is read, never written.
func MapLookup(env map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}
