package main

import "github.com/alexsavio/cor-cli/internal/cmd"

func main() {
	cmd.Execute()
}
