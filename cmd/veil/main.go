package main

import "github.com/veilmc/veil/pkg/cmd/veil"

func main() {
	veil.Execute()
}
