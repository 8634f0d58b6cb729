package main

import (
	"fmt"
	"os"

	// Import to register the simulation
	_ "github.com/meridian-sims/worldsim/cmd/worldsim/simulation"
)

func main() {
	fmt.Println("World Simulation registered. Use 'worldsim run' to execute.")
	os.Exit(0)
}
