package main

import (
	"os"

	"github.com/huddle-bot/huddle/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
