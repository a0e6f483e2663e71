package main

import "geoquest-backend/cmd"

func main() {
	cmd.Run()
}
