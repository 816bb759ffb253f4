package main

import "github.com/kozaktomas/backdrop/cmd"

func main() {
	cmd.Execute()
}
