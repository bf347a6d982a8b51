// Package module holds the contract the CLI uses to pull typed ports out of a built module.
// It sits below modkit so service modules can depend on it without importing the builder
package module

// Module is anything exposing a named bundle of ports
type Module interface {
	Name() string
	Ports() any
}
