//go:build tools
// +build tools

// Package portal pins go:generate tool dependencies (mockgen) in go.mod.
package portal

import (
	_ "go.uber.org/mock/mockgen"
)
