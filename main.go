package main

import "github.com/tantalor93/dns64perf/cmd"

func main() {
	cmd.Execute()
}
