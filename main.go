package main

import "github.com/mlskit/uniffi-tools/cmd"

func main() {
	cmd.Execute()
}
