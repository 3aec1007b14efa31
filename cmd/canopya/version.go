package main

import (
	"fmt"

	canopya "github.com/canopya/canopya"
)

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Println(canopya.GetVersion().String())
	return nil
}
