package main

import "github.com/driftline/market-sandbox/cmd/streamctl/cmd"

func main() {
	cmd.Execute()
}
