package main

import "rax/cmd"

func main() {
	cmd.Execute()
}
