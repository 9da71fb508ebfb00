package main

import "github.com/linanwx/notebot/cmd"

func main() {
	cmd.Execute()
}
