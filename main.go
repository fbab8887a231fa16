package main

import "github.com/chrisdamba/cleanbotsim/cmd"

func main() {
	cmd.Execute()
}
