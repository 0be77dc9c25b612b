// Command homesec-node runs the front board of the home security node: it
// relays between the mobile app and the camera bridge, answers sensor and
// alarm commands, and drives the buzzer and status LEDs.
package main

import "github.com/sweeney/homesec-node/cmd/homesec-node/cmd"

func main() {
	cmd.Execute()
}
