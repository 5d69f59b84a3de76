package main

import "github.com/Layr-Labs/staking-snap/cmd"

func main() {
	cmd.Execute()
}
