package main

import "github.com/Gonzalez-Esteban/tareasd/internal/cli"

func main() {
	cli.Run()
}
