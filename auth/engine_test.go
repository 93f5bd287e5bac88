package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ocppcs/models"
	"ocppcs/types"
	"ocppcs/utility"
)

type fakeStore struct {
	tags    map[string]*models.UserTag
	open    map[string]*models.Transaction
	tagErr  error
	openErr error
}

func (f *fakeStore) GetUserTag(id string) (*models.UserTag, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	return f.tags[id], nil
}

func (f *fakeStore) FindOpenTransactionByTag(idTag string) (*models.Transaction, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.open[idTag], nil
}

type nopLogger struct{}

func (l *nopLogger) FeatureEvent(feature, id, text string) {}
func (l *nopLogger) Debug(text string)                     {}
func (l *nopLogger) Warn(text string)                      {}
func (l *nopLogger) Error(text string, err error)          {}
func (l *nopLogger) RawDataEvent(direction, data string)   {}

func newTestEngine(store *fakeStore) *Engine {
	if store.tags == nil {
		store.tags = make(map[string]*models.UserTag)
	}
	if store.open == nil {
		store.open = make(map[string]*models.Transaction)
	}
	return NewEngine(store, &nopLogger{})
}

func TestAuthorize_UnknownTag(t *testing.T) {
	engine := newTestEngine(&fakeStore{})
	info := engine.Authorize("NOBODY", false)
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}

func TestAuthorize_EmptyTag(t *testing.T) {
	engine := newTestEngine(&fakeStore{})
	info := engine.Authorize("", false)
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}

func TestAuthorize_BlockedWinsOverExpired(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", IsBlocked: true, ExpiryDate: &expired},
	}})
	info := engine.Authorize("TAG1", false)
	assert.Equal(t, types.AuthorizationStatusBlocked, info.Status)
}

func TestAuthorize_Expired(t *testing.T) {
	expired := time.Now().Add(-time.Minute)
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", ExpiryDate: &expired},
	}})
	info := engine.Authorize("TAG1", false)
	assert.Equal(t, types.AuthorizationStatusExpired, info.Status)
}

func TestAuthorize_Accepted(t *testing.T) {
	future := time.Now().Add(time.Hour)
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", ParentIdTag: "FLEET", ExpiryDate: &future},
	}})
	info := engine.Authorize("TAG1", false)
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
	assert.Equal(t, "FLEET", info.ParentIdTag)
	assert.NotNil(t, info.ExpiryDate)
}

func TestAuthorize_ConcurrentTx(t *testing.T) {
	engine := newTestEngine(&fakeStore{
		tags: map[string]*models.UserTag{"TAG1": {IdTag: "TAG1"}},
		open: map[string]*models.Transaction{"TAG1": {Id: 7, IdTag: "TAG1"}},
	})
	assert.Equal(t, types.AuthorizationStatusConcurrentTx, engine.Authorize("TAG1", true).Status)
	// same open transaction is fine when the policy is off
	assert.Equal(t, types.AuthorizationStatusAccepted, engine.Authorize("TAG1", false).Status)
}

func TestAuthorize_StoreFailureFailsClosed(t *testing.T) {
	engine := newTestEngine(&fakeStore{tagErr: utility.Err("store down")})
	info := engine.Authorize("TAG1", false)
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}

func TestAuthorize_ConcurrencyLookupFailureFailsClosed(t *testing.T) {
	engine := newTestEngine(&fakeStore{
		tags:    map[string]*models.UserTag{"TAG1": {IdTag: "TAG1"}},
		openErr: utility.Err("store down"),
	})
	info := engine.Authorize("TAG1", true)
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}

func TestAuthorizeStop_SameTagOverridesBlocked(t *testing.T) {
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", IsBlocked: true},
	}})
	info := engine.AuthorizeStop("tag1", "TAG1")
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
}

func TestAuthorizeStop_DifferentTagSameGroup(t *testing.T) {
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", ParentIdTag: "FLEET"},
		"TAG2": {IdTag: "TAG2", ParentIdTag: "FLEET"},
	}})
	info := engine.AuthorizeStop("TAG2", "TAG1")
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
}

func TestAuthorizeStop_DifferentTagDifferentGroup(t *testing.T) {
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", ParentIdTag: "FLEET"},
		"TAG2": {IdTag: "TAG2", ParentIdTag: "OTHER"},
	}})
	info := engine.AuthorizeStop("TAG2", "TAG1")
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}

func TestAuthorizeStop_DifferentTagNoGroup(t *testing.T) {
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1"},
		"TAG2": {IdTag: "TAG2"},
	}})
	info := engine.AuthorizeStop("TAG2", "TAG1")
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}

func TestAuthorizeStop_UnresolvableStartGroupAllowsStop(t *testing.T) {
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG2": {IdTag: "TAG2", ParentIdTag: "FLEET"},
	}})
	info := engine.AuthorizeStop("TAG2", "GONE")
	assert.Equal(t, types.AuthorizationStatusAccepted, info.Status)
}

func TestAuthorizeStop_InvalidDifferentTagStaysInvalid(t *testing.T) {
	engine := newTestEngine(&fakeStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", ParentIdTag: "FLEET"},
	}})
	info := engine.AuthorizeStop("NOBODY", "TAG1")
	assert.Equal(t, types.AuthorizationStatusInvalid, info.Status)
}
