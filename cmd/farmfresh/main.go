package main

import "github.com/fjod/farmfresh/cmd/farmfresh/commands"

func main() {
	commands.Execute()
}
