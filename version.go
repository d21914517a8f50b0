package main

import (
	"fmt"
)

// Version is the version of vaultmerge
const Version = "v0.3"

// VersionCommand is interface to receive version read request
type VersionCommand struct {
}

var versionCommand VersionCommand

// Execute executes the get-version command
func (v VersionCommand) Execute(args []string) error {
	fmt.Println(Version)
	return nil
}

func init() {
	parser.AddCommand("version",
		"show the version of vaultmerge",
		"display the vaultmerge version",
		&versionCommand)
}
