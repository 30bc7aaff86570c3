package main

import "github.com/forPelevin/cellcast/internal/cli"

func main() {
	cli.Main()
}
