package main

import "bennypowers.dev/templatetag/internal/cli"

func main() {
	cli.Execute()
}
