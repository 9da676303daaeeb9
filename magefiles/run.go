//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Preset compiles a preset and renders a handful of headless CPU frames,
// the quickest way to exercise the full pipeline end to end locally.
func (Run) Preset(path string) error {
	if err := (Build{}).Binary(); err != nil {
		return err
	}
	fmt.Printf("Running preset %s...\n", path)
	_, err := executeCmd("bin/slangc", withArgs("-preset", path, "-frames", "8", "-verbose"), withStream())
	return err
}
