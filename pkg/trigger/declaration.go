// Package trigger implements the build trigger declarations: telling the
// build orchestration layer which paths invalidate the cached artifact,
// deciding whether the generator has to re-run and watching those paths for
// changes.
package trigger

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"

	"github.com/mlskit/uniffi-tools/pkg/project"
)

const (
	directivePrefix = "cargo"

	defaultStartMessage = "uniffi build trigger declaration running"
	defaultDoneMessage  = "Declaration completed - run uniffi-tool generate to emit bindings"
)

// Declaration describes the rerun triggers and diagnostics emitted towards
// the build orchestration layer.
type Declaration struct {
	Paths        []string
	StartMessage string
	DoneMessage  string
}

// FromConfig builds the declaration for a project. The paths are emitted the
// way the script declared them, not resolved, since the orchestration layer
// interprets them relative to the project root anyway.
func FromConfig(config *project.Config) Declaration {
	return Declaration{
		Paths:        config.Watch,
		StartMessage: defaultStartMessage,
		DoneMessage:  defaultDoneMessage,
	}
}

// Emit writes the declaration. This always writes the start diagnostic, one
// rerun directive per path and the completion diagnostic, in that order.
func (d Declaration) Emit(w io.Writer) error {
	lines := make([]string, 0, len(d.Paths)+2)
	lines = append(lines, fmt.Sprintf("%s:warning=%s", directivePrefix, d.StartMessage))

	for _, path := range d.Paths {
		lines = append(lines, fmt.Sprintf("%s:rerun-if-changed=%s", directivePrefix, path))
	}

	lines = append(lines, fmt.Sprintf("%s:warning=%s", directivePrefix, d.DoneMessage))

	for _, line := range lines {
		_, err := fmt.Fprintln(w, line)
		if err != nil {
			return eris.Wrap(err, "failed to write declaration")
		}
	}

	return nil
}
