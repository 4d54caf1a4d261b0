package config

const redacted = "****"

// Sensitive is a string that never prints its value.
type Sensitive string

// PlainText returns the secret itself. Call it only where the value is consumed.
func (s Sensitive) PlainText() string {
	return string(s)
}

func (s Sensitive) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// MarshalText keeps secrets out of JSON logs and config dumps.
func (s Sensitive) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
