package main

import "github.com/MeKo-Tech/routemeta/internal/cmd"

func main() {
	cmd.Execute()
}
