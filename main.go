package main

import "github.com/grognard-labs/aslcat/internal/cli"

func main() {
	cli.Execute()
}
