package main

import (
	"go-gallery-fetch/cmd/gallery-fetch/cmd"
)

func main() {
	cmd.Execute()
}
