//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Binary builds the slangc CLI.
func (Build) Binary() error {
	fmt.Println("Build slangc...")
	_, err := executeCmd("go", withArgs("build", "-o", "bin/slangc", "./cmd/slangc"), withStream())
	return err
}

// Fixtures compiles every .slangp preset under testdata with the CLI's
// dry-run mode (reflection only, no rendering), catching parser/compiler
// regressions without needing a GPU.
func (Build) Fixtures() error {
	if err := (Build{}).Binary(); err != nil {
		return err
	}
	presets, err := findPresets("preset/testdata")
	if err != nil {
		return err
	}
	for _, p := range presets {
		fmt.Printf("Checking preset %s...\n", p)
		if _, err := executeCmd("bin/slangc", withArgs("-preset", p), withStream()); err != nil {
			return err
		}
	}
	return nil
}
