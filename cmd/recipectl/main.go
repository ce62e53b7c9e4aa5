package main

import "github.com/ivankudzin/recipemarket/cmd/recipectl/commands"

func main() {
	commands.Execute()
}
