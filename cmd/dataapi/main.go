package main

import (
	"os"

	"github.com/statspub/dataapi/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
