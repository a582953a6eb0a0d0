package main

import "github.com/notargets/oceansieve/cmd"

func main() {
	cmd.Execute()
}
