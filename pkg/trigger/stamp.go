package trigger

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
)

// StampName is the file below .tools that records the last generator run.
const StampName = "bindgen.stamp"

// Stamp records a completed generator run. The env table is kept so a future
// run with different settings counts as stale even when no file changed.
type Stamp struct {
	RunID string
	Time  time.Time
	Env   map[string]string
}

// NewStamp creates a stamp for a run that finished now.
func NewStamp(env map[string]string) Stamp {
	return Stamp{
		RunID: nanoid.New(),
		Time:  time.Now(),
		Env:   env,
	}
}

// Matches reports whether the recorded env table equals the given one.
func (s Stamp) Matches(env map[string]string) bool {
	if len(s.Env) != len(env) {
		return false
	}

	for name, value := range env {
		if s.Env[name] != value {
			return false
		}
	}

	return true
}

// StampPath returns the stamp location for the given project root.
func StampPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".tools", StampName)
}

// WriteStamp persists the stamp, creating the .tools directory if necessary.
func WriteStamp(file string, stamp Stamp) error {
	err := os.MkdirAll(filepath.Dir(file), 0o770)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", filepath.Dir(file))
	}

	handle, err := os.Create(file)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", file)
	}
	defer handle.Close()

	err = gob.NewEncoder(handle).Encode(stamp)
	if err != nil {
		return eris.Wrapf(err, "failed to write %s", file)
	}

	return nil
}

// ReadStamp loads a previously written stamp. A missing file isn't an error,
// it just returns a zero stamp (which always counts as stale).
func ReadStamp(file string) (Stamp, error) {
	var stamp Stamp

	handle, err := os.Open(file)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return stamp, nil
		}
		return stamp, eris.Wrapf(err, "failed to open %s", file)
	}
	defer handle.Close()

	err = gob.NewDecoder(handle).Decode(&stamp)
	if err != nil {
		return stamp, eris.Wrapf(err, "failed to read %s", file)
	}

	return stamp, nil
}
