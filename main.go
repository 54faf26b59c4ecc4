package main

import "content-forge/cmd"

func main() {
	cmd.Execute()
}
