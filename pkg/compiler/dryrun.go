package compiler

import "fmt"

// dryRunScenarioText produces a deterministic Pass-1 output so the
// pipeline is testable without a model (§4.13 "In dry_run, a deterministic
// fixed template is used").
func dryRunScenarioText(intent string) string {
	return fmt.Sprintf(`# Feature: %s

## Scenario: primary path
- Given: the system is in a known baseline state
- When: %s is attempted
- Then: the outcome is recorded and observable

## Scenario: guarded path
- Given: a precondition for %s is violated
- When: the attempt is made anyway
- Then: the attempt is rejected with a recorded reason
`, intent, intent, intent)
}
