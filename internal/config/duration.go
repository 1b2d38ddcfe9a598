// Package config holds YAML leaf types shared by the service configs.
package config

import (
	"fmt"
	"time"
)

// Duration decodes Go duration strings ("250ms", "1h30m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	err := unmarshal(&s)
	if err != nil {
		return err
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("couldn't parse duration %q: %w", s, err)
	}
	if duration < 0 {
		return fmt.Errorf("duration %q must not be negative", s)
	}

	*d = Duration(duration)
	return nil
}

func (d *Duration) Duration() time.Duration {
	return time.Duration(*d)
}

// Or returns the decoded duration, or fallback when the field was absent.
func (d *Duration) Or(fallback time.Duration) time.Duration {
	if d == nil || *d == 0 {
		return fallback
	}
	return time.Duration(*d)
}
