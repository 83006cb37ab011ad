package config

import (
	"errors"
	"fmt"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyPrograms indicates that no program patterns are configured
	ErrEmptyPrograms = errors.New("empty program patterns")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.Paths.Programs) == 0 {
		errs = append(errs, ErrEmptyPrograms)
	}

	for _, pattern := range cfg.Paths.Programs {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: programs pattern %q: %v", ErrInvalidPattern, pattern, err))
		}
	}
	for _, pattern := range cfg.Paths.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: ignore pattern %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
