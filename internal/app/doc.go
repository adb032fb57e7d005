// Package app assembles the generation stack from configuration. Both the
// HTTP server and the command line tool build their components here.
package app
