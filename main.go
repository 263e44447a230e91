package main

import "bloom-backend/cmd"

func main() {
	cmd.Run()
}
