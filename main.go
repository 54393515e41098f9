package main

import (
	"github.com/praetorian-inc/aztopo/cmd"
)

func main() {
	cmd.Execute()
}
