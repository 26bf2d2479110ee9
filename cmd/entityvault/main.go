package main

import "entityvault/internal/cli"

func main() {
	cli.Execute()
}
