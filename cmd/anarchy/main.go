// Anarchy runs the rule-override pipeline of a city-builder placement tool
// against a simulated host.
//
// It drives scripted tool frames through the anarchy passes and reports what
// each frame suppressed, corrected, preserved and committed. It also manages
// the persisted error-check policy table.
//
// Usage:
//
//	# Run a scenario
//	anarchy simulate --scenario scenarios/overlap.yaml
//
//	# Run with metrics and health endpoints
//	anarchy simulate --scenario scenarios/overlap.yaml --metrics-addr :9090
//
//	# Show the policy table
//	anarchy checks list
//
//	# Always disable the water check
//	anarchy checks set InWater Always
//
//	# Validate a configuration file
//	anarchy config validate --config anarchy.yaml
package main

func main() {
	Execute()
}
