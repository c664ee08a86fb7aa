package util

import "flag"

var PrintSecrets = flag.Bool(
	"print-secrets", false, "Disables redacting config secrets")

const Redacted = "REDACTED"

// StringSecret is a configuration value that must not leak into logs or
// rendered config output. The raw value stays accessible via Value.
type StringSecret struct {
	Value string
}

func (s StringSecret) String() string {
	if *PrintSecrets {
		return s.Value
	}
	if s.Value == "" {
		return ""
	}
	return Redacted
}

func (s *StringSecret) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshal(&s.Value)
}

// Decode implements the envconfig decoder interface so secrets can be
// supplied through the environment.
func (s *StringSecret) Decode(value string) error {
	s.Value = value
	return nil
}
