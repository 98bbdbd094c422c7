package main

import "github.com/aussiebroadwan/portal/cmd/portal/cmd"

func main() {
	cmd.Execute()
}
