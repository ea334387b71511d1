package main

import "burstpick/cmd"

func main() {
	cmd.Execute()
}
