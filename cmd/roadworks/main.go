// Package main provides the entry point for the roadworks CLI.
//
// roadworks collects the Highways Agency planned roadworks dataset: it
// downloads every XML file linked from a saved listing page and sorts the
// files by publication format.
//
// Usage:
//
//	roadworks fetch
//	roadworks sort
//	roadworks run
//
// See --help for all available options.
package main

// main is the entry point for roadworks.
func main() {
	Execute()
}
