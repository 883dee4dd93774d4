// Command arsdkctl is a reference driver for the controller runtime: it
// wires discovery, the command interface, and the FTP-backed request
// interfaces to cobra subcommands (spec §6 "Example driver").
//
// Usage:
//
//	arsdkctl discover --net :44444
//	arsdkctl ftp get --addr 192.168.42.1 --port 21 /internal_000/media/a.jpg ./a.jpg
//	arsdkctl media dl --addr 192.168.42.1 --port 21 --out ./media
package main

import (
	"fmt"
	"os"

	"github.com/arsdkgo/arsdkctrl/cmd/arsdkctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
