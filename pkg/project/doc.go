// Package project loads the bindgen.star script that describes a bindings
// project: which paths should trigger a re-run of the generator, which
// environment the generator gets and which commands run after it finishes.
// Starlark keeps the script declarative while still allowing platform checks.
package project
