package main

import "github.com/ponyo877/bingo/cli/cmd"

func main() {
	cmd.Execute()
}
