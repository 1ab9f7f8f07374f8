package store

import "strings"

// NewFromEnv dispatches to a concrete Store based on mode, mirroring the
// teacher's ledger.NewServiceFromEnv("postgres"|"sqlite") pattern.
func NewFromEnv(mode string) (Store, string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "sqlite", "local", "":
		s, err := NewSQLiteStoreFromEnv()
		if err != nil {
			return nil, "", err
		}
		return s, "sqlite", nil
	default:
		s, err := NewPostgresStoreFromEnv()
		if err != nil {
			return nil, "", err
		}
		return s, "postgres", nil
	}
}
