package main

import "github.com/chiplab/busfabric/cmd/busfabric/cmd"

func main() {
	cmd.Execute()
}
