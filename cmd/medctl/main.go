package main

import (
	"github.com/medialib-dev/medialib/internal/cli"
)

func main() {
	cli.Execute()
}
