package notes

import (
	"context"
	"fmt"
)

// Open builds the store named by driver and makes sure categories exist.
func Open(ctx context.Context, driver, dsn string, categories []string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", "memory":
		s = NewMemoryStore()
	case "sqlite":
		s, err = OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown notes driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		if err := s.EnsureCategory(ctx, c); err != nil {
			s.Close()
			return nil, fmt.Errorf("ensure category %q: %w", c, err)
		}
	}
	return s, nil
}
