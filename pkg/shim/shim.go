// Package shim implements the flag-forwarding layer in front of the external
// uniffi-bindgen binary. It translates the iOS-specific flags into the
// environment variables the generator reads and otherwise stays out of the way.
package shim

import (
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
)

// flagEnvMap lists the recognized flags and the environment variable each one
// feeds. Everything else on the command line belongs to the generator.
var flagEnvMap = map[string]string{
	"--swift-out-dir":         "UNIFFI_SWIFT_OUT_DIR",
	"--framework-name":        "UNIFFI_FRAMEWORK_NAME",
	"--ios-deployment-target": "UNIFFI_IOS_DEPLOYMENT_TARGET",
}

// EnvTable holds the environment assignments collected for the generator.
// It's an explicit value instead of ambient process state so callers (and
// tests) can inspect it before anything is applied.
type EnvTable map[string]string

// Scan walks the argument vector once and records a value for every
// recognized flag that is followed by one. Unknown flags are ignored, a
// recognized flag in the final position is skipped. The passed table is
// updated in place which allows seeding it with defaults first.
func Scan(args []string, table EnvTable) EnvTable {
	if table == nil {
		table = EnvTable{}
	}

	for i := 0; i < len(args); i++ {
		name, ok := flagEnvMap[args[i]]
		if !ok {
			continue
		}

		if i+1 < len(args) {
			table[name] = args[i+1]
		}
	}

	return table
}

// LoadDefaults reads an env-file and returns its assignments as a table.
// Only the three generator variables are picked up, everything else in the
// file is left alone.
func LoadDefaults(path string) (EnvTable, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read env file %s", path)
	}

	table := EnvTable{}
	for _, name := range flagEnvMap {
		if value, ok := values[name]; ok {
			table[name] = value
		}
	}

	return table, nil
}

// Apply merges the table into the given base environment (usually
// os.Environ()) and returns the result in KEY=value form.
func (t EnvTable) Apply(base []string) []string {
	merged := make([]string, 0, len(base)+len(t))
	for _, entry := range base {
		skip := false
		for name := range t {
			if len(entry) > len(name) && entry[:len(name)] == name && entry[len(name)] == '=' {
				skip = true
				break
			}
		}

		if !skip {
			merged = append(merged, entry)
		}
	}

	for name, value := range t {
		merged = append(merged, name+"="+value)
	}

	return merged
}
