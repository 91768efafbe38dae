// uniffi-helper is the bare flag-forwarding shim: it translates the iOS
// flags into UNIFFI_* environment variables and execs uniffi-bindgen with the
// unmodified argument vector. Use the main uniffi-tool binary for the project
// script, staleness checks and hooks.
package main

import (
	"context"
	"os"

	"github.com/mlskit/uniffi-tools/pkg/shim"
)

func main() {
	table := shim.Scan(os.Args[1:], nil)

	binary, err := shim.ResolveGenerator("", os.Getenv("UNIFFI_BINDGEN"))
	if err != nil {
		panic(err)
	}

	code, err := shim.Delegate(context.Background(), binary, os.Args[1:], table)
	if err != nil {
		panic(err)
	}

	os.Exit(code)
}
