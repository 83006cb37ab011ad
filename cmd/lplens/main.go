package main

import (
	"github.com/lplens/lplens/internal/cli"
)

func main() {
	cli.Execute()
}
