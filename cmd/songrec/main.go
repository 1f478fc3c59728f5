package main

import "songrec/internal/cli"

func main() {
	cli.Execute()
}
