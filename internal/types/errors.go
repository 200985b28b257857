package types

import "fmt"

func errBoundsNil(name string) error {
	return fmt.Errorf("bounds %s: min/max must be set", name)
}

func errBoundsOrder(name string) error {
	return fmt.Errorf("bounds %s: min must be non-negative and not exceed max", name)
}
