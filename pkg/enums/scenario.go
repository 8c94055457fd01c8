package enums

import "fmt"

// Scenario names the multi-step conversation flow a user is inside.
type Scenario string

const (
	ScenarioTicketNumber   Scenario = "ticket_number"
	ScenarioSerialNumber   Scenario = "serial_number"
	ScenarioContractNumber Scenario = "contract_number"
	ScenarioWriteoffSerial Scenario = "writeoff_serial"
)

var validScenarios = []Scenario{
	ScenarioTicketNumber,
	ScenarioSerialNumber,
	ScenarioContractNumber,
	ScenarioWriteoffSerial,
}

// String implements fmt.Stringer.
func (s Scenario) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Scenario.
func (s Scenario) IsValid() bool {
	for _, candidate := range validScenarios {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScenario converts raw input into a Scenario.
func ParseScenario(value string) (Scenario, error) {
	for _, candidate := range validScenarios {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scenario %q", value)
}
