package main

import (
	"github.com/nocturnelabs/researchbot/cmd"
)

func main() {
	cmd.Execute()
}
