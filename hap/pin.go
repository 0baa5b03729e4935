package hap

import (
	"fmt"
	"regexp"
)

var setupCodePattern = regexp.MustCompile(`^\d{3}-\d{2}-\d{3}$`)

// DefaultSetupCode is used when Config.Pin is empty, matching the
// teacher's "00102003" fallback reformatted to HAP's dashed display form.
const DefaultSetupCode = "001-02-003"

// NewPin validates a HAP setup code of the form "XXX-XX-XXX" and returns
// it, dashes included, as the password SRP authenticates against.
func NewPin(pin string) (string, error) {
	if !setupCodePattern.MatchString(pin) {
		return "", fmt.Errorf("hap: invalid pin %q, must match XXX-XX-XXX", pin)
	}
	return pin, nil
}
