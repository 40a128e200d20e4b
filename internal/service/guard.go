package service

import (
	"context"

	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
)

// Guard checks whether a signup already exists for an identity, date and category.
type Guard struct {
	store  model.SignupStore
	logger *logger.Logger
}

func NewGuard(store model.SignupStore, logger *logger.Logger) *Guard {
	return &Guard{store: store, logger: logger}
}

// Exists reports whether a live signup matches the identity key, date and
// category. Anonymous identities and store failures both report false.
//
// The check is not atomic with the write that follows it. Two concurrent
// submissions for the same key can both pass.
func (g *Guard) Exists(ctx context.Context, identity model.Identity, date string, category model.Category) bool {
	key, ok := dedupKey(identity, date, category)
	if !ok {
		return false
	}

	exists, err := g.store.ExistsByKey(ctx, key)
	if err != nil {
		g.logger.Warn("Guard: duplicate check failed, allowing submission",
			"owner_field", key.Field,
			"date", date,
			"category", category,
			"error", err.Error())
		return false
	}
	return exists
}

func dedupKey(identity model.Identity, date string, category model.Category) (model.DedupKey, bool) {
	key := model.DedupKey{Date: date, Category: category}
	switch {
	case identity.OwnerID != "":
		key.Field = model.OwnerFieldID
		key.Owner = identity.OwnerID
	case identity.OwnerEmail != "":
		key.Field = model.OwnerFieldEmail
		key.Owner = identity.OwnerEmail
	default:
		return model.DedupKey{}, false
	}
	return key, true
}
