package main

import "github.com/josephlewis42/smallsh/cmd"

func main() {
	cmd.Execute()
}
