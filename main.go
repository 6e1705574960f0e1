package main

import "github.com/hupe1980/hnsm/cmd"

func main() {
	cmd.Execute()
}
