//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

// Test runs the test suite with the race detector.
func Test() error {
	mg.Deps(Shaders.Validate)
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("golangci-lint", withArgs("run", "./..."), withStream())
	return err
}

// Build compiles the arcompose command.
func Build() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/arcompose", "./cmd/arcompose"),
		withEnv("CGO_ENABLED=0"), withStream())
	return err
}
