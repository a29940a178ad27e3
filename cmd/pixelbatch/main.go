package main

import "go-pixelbatch/cmd/pixelbatch/cmd"

func main() {
	cmd.Execute()
}
