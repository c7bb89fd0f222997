package main

import "github.com/coderoom/coderoom/internal/cli"

func main() {
	cli.Execute()
}
