package ml

import "fmt"

// DimensionMismatchError reports a vector whose width disagrees with what a
// stage was fit on. It points at artifact or schema drift, never at user input.
type DimensionMismatchError struct {
	Stage    string
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s expects %d features, got %d", e.Stage, e.Expected, e.Got)
}

// ArtifactUnavailableError reports an artifact that could not be read,
// decoded or reconciled with the others. It is fatal at startup.
type ArtifactUnavailableError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactUnavailableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("artifact %s unavailable: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("artifact %s unavailable (%s): %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactUnavailableError) Unwrap() error { return e.Err }
