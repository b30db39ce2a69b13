package main

import "github.com/abax-solver/abax/cmd"

func main() {
	cmd.Execute()
}
