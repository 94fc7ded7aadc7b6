package main

import "github.com/chew-z/bypass-proxy/cmd"

func main() {
	cmd.Execute()
}
