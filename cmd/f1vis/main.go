package main

import "github.com/f1-visualizer/backend/internal/cli"

func main() {
	cli.Execute()
}
