package main

import "github.com/jmcglinch/structuredproducts/internal/cli"

func main() {
	cli.Execute()
}
