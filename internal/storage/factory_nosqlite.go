//go:build !sqlite

package storage

import "boolnet/internal/errors"

func newSQLiteStore(_ string) (Store, error) {
	return nil, errors.WithHint(
		errors.New("sqlite backend unavailable in this build"),
		"rebuild with -tags sqlite",
	)
}

func DefaultStoreKind() string {
	return "memory"
}
