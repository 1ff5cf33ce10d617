package main

import "promptforge/cmd/promptforge/cmd"

func main() {
	cmd.Execute()
}
