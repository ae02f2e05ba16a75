package main

import "github.com/krau/tgkw/cmd"

func main() {
	cmd.Execute()
}
