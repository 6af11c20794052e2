package emu

// Core identity reported to frontends.
const (
	Name    = "emarc"
	Version = "0.1.0"
)
