package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/scope"
)

// Session is a persistence session bound to exactly one tenant and one
// physical connection. Writes issued through it are stamped and filtered by
// the callbacks in this package; Delete dispatches between soft and physical
// deletion based on the entity's declared capability.
type Session struct {
	db    *gorm.DB
	scope scope.Scope
	inTx  bool
}

// Scope returns the scope the session was constructed with.
func (s *Session) Scope() scope.Scope {
	return s.scope
}

// DB exposes the underlying handle for queries. The tenant filter and audit
// stamps apply to it as well, so there is no unintercepted path.
func (s *Session) DB() *gorm.DB {
	return s.db
}

// Create inserts entities, stamping tenant id and creation audit fields.
func (s *Session) Create(value interface{}) error {
	return s.Transaction(func(tx *Session) error {
		return tx.db.Create(value).Error
	})
}

// Save persists all fields of an existing entity inside a transaction,
// stamping the modification audit fields.
func (s *Session) Save(value interface{}) error {
	return s.Transaction(func(tx *Session) error {
		return tx.db.Save(value).Error
	})
}

// Delete removes an entity. Soft-deletable entities get their deletion
// stamps set and are written back as an update; everything else is
// physically removed.
func (s *Session) Delete(value interface{}) error {
	return s.Transaction(func(tx *Session) error {
		if soft, ok := value.(model.SoftDeletable); ok {
			soft.StampDeleted(time.Now().UTC(), tx.scope.UserID)
			return tx.db.Set(softDeleteSetting, true).
				Model(value).
				Select("DeletedOn", "DeletedBy").
				Updates(value).Error
		}
		return tx.db.Unscoped().Delete(value).Error
	})
}

// Transaction runs fn atomically. A session already inside a transaction is
// reused rather than nested; otherwise a transaction is begun, committed on
// success and rolled back on any error before the error is returned.
func (s *Session) Transaction(fn func(tx *Session) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Session{db: tx, scope: s.scope, inTx: true})
	})
}
