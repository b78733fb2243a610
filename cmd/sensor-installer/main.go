package main

import "github.com/gc-monitoring/sensor-installer/cmd/sensor-installer/cmd"

func main() {
	cmd.Execute()
}
