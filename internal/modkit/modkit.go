// Package modkit wires service modules from shared dependencies
package modkit

// Module is a built service module as the CLI sees it
type Module interface {
	Name() string

	// Ports returns the module's port bundle; see module.PortsOf
	Ports() any

	// Close releases storage and other handles the module opened
	Close() error
}

// Builder constructs a Module; collect's module.New has this shape plus a context
type Builder func(Deps, ...Option) (Module, error)
