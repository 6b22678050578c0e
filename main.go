package main

import "github.com/KaramelBytes/linkstat/cmd"

func main() {
	cmd.Execute()
}
