package main

import "github.com/birchaudio/birch/cmd"

func main() {
	cmd.Execute()
}
