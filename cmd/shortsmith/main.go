package main

import "github.com/forPelevin/shortsmith/internal/cli"

func main() {
	cli.Main()
}
