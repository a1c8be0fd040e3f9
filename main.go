package main

import "github.com/tkoeppen/taskwire/cmd"

func main() {
	cmd.Execute()
}
