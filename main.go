package main

import "github.com/zillowdl/zillowdl/cmd"

func main() {
	cmd.Execute()
}
