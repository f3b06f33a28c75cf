package main

import "github.com/mtaran/crdbextract/cmd"

func main() {
	cmd.Execute()
}
