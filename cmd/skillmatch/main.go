package main

import "skillmatch/internal/cli"

func main() {
	cli.Execute()
}
