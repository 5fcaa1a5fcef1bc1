package main

// Build-time variables 'version', 'commit', and 'date' are declared in
// 'root.go' within this package and populated via -ldflags.

// main is the entry point for the trace-oracle application. Execute sets up
// and runs the root Cobra command; error printing and exit codes are handled
// there.
func main() {
	Execute()
}
