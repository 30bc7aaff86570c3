package artifact

import "fmt"

// LoadError identifies the artifact and field that failed to load.
type LoadError struct {
	Artifact string
	Field    string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("load %s: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("load %s: field %s: %v", e.Artifact, e.Field, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
