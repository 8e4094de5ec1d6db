package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Lifetime is a duration that also accepts a whole-day suffix, e.g. "7d".
// It implements encoding.TextUnmarshaler so env can parse it from a tag.
type Lifetime time.Duration

// UnmarshalText parses Go duration syntax ("30m", "1h30m") or "<n>d".
func (l *Lifetime) UnmarshalText(text []byte) error {
	d, err := ParseLifetime(string(text))
	if err != nil {
		return err
	}
	*l = Lifetime(d)
	return nil
}

// Duration returns the lifetime as a time.Duration.
func (l Lifetime) Duration() time.Duration {
	return time.Duration(l)
}

// maxLifetimeDays is the largest day count a time.Duration can hold.
const maxLifetimeDays = math.MaxInt64 / int64(24*time.Hour)

// ParseLifetime parses a positive duration. In addition to time.ParseDuration
// syntax it accepts an integer number of days with a "d" suffix.
func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		if int64(n) > maxLifetimeDays {
			return 0, fmt.Errorf("day duration %q exceeds %d days", s, maxLifetimeDays)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port      int      `env:"HTTP_PORT" envDefault:"4000"`
//	    AccessTTL Lifetime `env:"JWT_ACCESS_EXPIRATION" envDefault:"30m"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
