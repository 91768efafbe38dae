//go:build tools
// +build tools

package main

import (
	_ "github.com/cortesi/modd/cmd/modd"
)
