package main

import "github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd"

func main() {
	cmd.Execute()
}
