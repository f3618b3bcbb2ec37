package main

import "github.com/dshills/ctxextract/internal/cli"

func main() {
	cli.Execute()
}
