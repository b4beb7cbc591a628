// Command relaybeam is the CLI client: send a file, or receive one given a
// room id or share link.
package main

import "github.com/relaybeam/relaybeam/cmd/relaybeam/cmd"

func main() {
	cmd.Execute()
}
