package main

import "GenreFM/cmd"

func main() {
	cmd.Execute()
}
