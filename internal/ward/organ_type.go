package ward

import "fmt"

// OrganType enumerates the organs a patient can carry. Every patient has
// exactly one slot per type.
type OrganType uint8

const (
	OrganCranium OrganType = iota
	OrganLiver
	OrganNephro

	organTypeCount = 3
)

// OrganTypes lists every organ type in slot order.
var OrganTypes = [organTypeCount]OrganType{OrganCranium, OrganLiver, OrganNephro}

var organTypeNames = [organTypeCount]string{"cranium", "liver", "nephro"}

func (t OrganType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("organ(%d)", uint8(t))
	}
	return organTypeNames[t]
}

// Valid reports whether t is one of the known organ types.
func (t OrganType) Valid() bool {
	return t < organTypeCount
}

// ParseOrganType resolves the lowercase wire name of an organ type.
func ParseOrganType(name string) (OrganType, error) {
	for i, candidate := range organTypeNames {
		if candidate == name {
			return OrganType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown organ type %q", name)
}

func (t OrganType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid organ type %d", uint8(t))
	}
	return []byte(organTypeNames[t]), nil
}

func (t *OrganType) UnmarshalText(data []byte) error {
	parsed, err := ParseOrganType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
