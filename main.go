package main

import "github.com/mj1618/page-tracker/cmd"

func main() {
	cmd.Execute()
}
