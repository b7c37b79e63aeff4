package main

import "github.com/opentrusty/opentrusty/cmd"

func main() {
	cmd.Execute()
}
