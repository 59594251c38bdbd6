package main

import (
	"os"

	"github.com/deepscan/fakedetect/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
