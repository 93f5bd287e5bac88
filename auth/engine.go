package auth

import (
	"fmt"
	"strings"
	"time"

	"ocppcs/internal"
	"ocppcs/models"
	"ocppcs/types"
)

// TagStore is the narrow read interface the engine needs. The mongo client
// satisfies it; tests use an in-memory fake.
type TagStore interface {
	GetUserTag(id string) (*models.UserTag, error)
	FindOpenTransactionByTag(idTag string) (*models.Transaction, error)
}

// Engine decides the authorization status for an id tag. Decisions are
// computed fresh on every call and never cached.
type Engine struct {
	store  TagStore
	logger internal.LogHandler
}

func NewEngine(store TagStore, logger internal.LogHandler) *Engine {
	return &Engine{store: store, logger: logger}
}

// Authorize resolves the tag and applies the decision order: unknown tag is
// Invalid, blocked wins over expired, expiry wins over accepted. With
// denyConcurrent an Accepted tag holding an open transaction anywhere is
// downgraded to ConcurrentTx. Store failures fail closed to Invalid.
func (e *Engine) Authorize(idTag string, denyConcurrent bool) *types.IdTagInfo {
	if idTag == "" || e.store == nil {
		return types.NewIdTagInfo(types.AuthorizationStatusInvalid)
	}
	userTag, err := e.store.GetUserTag(idTag)
	if err != nil || userTag == nil {
		if err != nil {
			e.logger.Warn(fmt.Sprintf("tag lookup failed for %s: %s", idTag, err))
		}
		return types.NewIdTagInfo(types.AuthorizationStatusInvalid)
	}

	info := types.NewIdTagInfo(types.AuthorizationStatusAccepted)
	info.ParentIdTag = userTag.ParentIdTag
	if userTag.ExpiryDate != nil {
		info.ExpiryDate = types.NewDateTime(*userTag.ExpiryDate)
	}

	if userTag.IsBlocked {
		info.Status = types.AuthorizationStatusBlocked
		return info
	}
	if userTag.ExpiryDate != nil && userTag.ExpiryDate.Before(time.Now()) {
		info.Status = types.AuthorizationStatusExpired
		return info
	}

	if denyConcurrent {
		open, err := e.store.FindOpenTransactionByTag(idTag)
		if err != nil {
			e.logger.Warn(fmt.Sprintf("open transaction lookup failed for %s: %s", idTag, err))
			info.Status = types.AuthorizationStatusInvalid
			return info
		}
		if open != nil {
			info.Status = types.AuthorizationStatusConcurrentTx
			return info
		}
	}
	return info
}

// AuthorizeStop applies the stop rule: whoever started a session may always
// end it, so the exact starting tag is accepted even if it is blocked or
// expired by now. A different tag must be valid and share the starting tag's
// parent group. When the starting tag's group cannot be resolved at all the
// stop is allowed rather than stranding the session.
func (e *Engine) AuthorizeStop(idTag, startIdTag string) *types.IdTagInfo {
	if strings.EqualFold(idTag, startIdTag) {
		return types.NewIdTagInfo(types.AuthorizationStatusAccepted)
	}

	info := e.Authorize(idTag, false)
	if info.Status != types.AuthorizationStatusAccepted {
		return info
	}

	startTag, err := e.store.GetUserTag(startIdTag)
	if err != nil || startTag == nil {
		e.logger.Warn(fmt.Sprintf("cannot resolve group of starting tag %s, allowing stop", startIdTag))
		return info
	}
	if startTag.ParentIdTag == "" || !strings.EqualFold(info.ParentIdTag, startTag.ParentIdTag) {
		info.Status = types.AuthorizationStatusInvalid
	}
	return info
}
