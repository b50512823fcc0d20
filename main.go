package main

import "ingestd/cmd"

func main() {
	cmd.Execute()
}
