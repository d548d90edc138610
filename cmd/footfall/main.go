// v0
// cmd/footfall/main.go

package main

import "it.uniroma2.dicii/nrg-champ/footfall/cmd/footfall/cmd"

func main() {
	cmd.Execute()
}
