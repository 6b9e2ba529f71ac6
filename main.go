package main

import "github.com/muxfetch/muxfetch/cmd"

func main() {
	cmd.Execute()
}
