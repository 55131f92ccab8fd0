package main

import "github.com/icco/keytutor/cmd"

func main() {
	cmd.Execute()
}
