package main

import "github.com/mcoot/treason-stats/internal/cli"

func main() {
	cli.Execute()
}
