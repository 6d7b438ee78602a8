package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

func conn(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	if db == nil {
		return nil, ErrDBNotReady
	}
	return db.WithContext(ctx), nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a lowercase LIKE pattern for a substring match; use it with ESCAPE '!'.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
