package main

import "github.com/fbz-tec/crudx/cmd"

func main() {
	cmd.Execute()
}
