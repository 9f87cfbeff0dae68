// Command ristcat sends and receives RIST streams.
package main

import "github.com/opd-ai/rist/cmd/ristcat/cmd"

func main() {
	cmd.Execute()
}
