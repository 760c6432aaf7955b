// Command react-agent runs the reason-act agent on the console or as a web
// server.
package main

import "github.com/martinemde/reactagent/internal/cli"

func main() {
	cli.Execute()
}
