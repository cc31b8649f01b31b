package main

import (
	"ely.by/yggrelay/internal/cmd"
)

func main() {
	cmd.Execute()
}
