package main

import "github.com/MeKo-Tech/pixcanon/cmd/pixcanon/cmd"

func main() {
	cmd.Execute()
}
