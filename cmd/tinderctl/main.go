package main

import "github.com/JohnPlummer/jp-go-tinder/internal/cli"

func main() {
	cli.Execute()
}
