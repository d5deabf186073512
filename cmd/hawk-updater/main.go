package main

import "github.com/oshokin/hawk-updater/cmd/hawk-updater/cmd"

func main() {
	cmd.Execute()
}
