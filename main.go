package main

import "github.com/solred/ripd/cmd"

func main() {
	cmd.Execute()
}
