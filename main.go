package main

import "github.com/buzzblog/postrpc/cmd"

func main() {
	cmd.Execute()
}
