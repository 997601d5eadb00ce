package database

import (
	"errors"
	"reflect"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/scope"
)

// ErrMissingScope is returned when a tenant-owned entity is accessed through
// a context that carries no tenant scope. An unscoped read of tenant data is
// never silently allowed.
var ErrMissingScope = errors.New("tenant scope missing from context")

// softDeleteSetting marks a statement issued by the soft-delete branch of
// Session.Delete so the audit update callback leaves it alone.
const softDeleteSetting = "diquis:soft_delete"

// RegisterCallbacks wires tenant stamping, audit stamping and the tenant
// isolation filter into a connection pool. Registered once per pool; each
// callback reads the scope from the statement context, so one pool serves
// any number of concurrent request scopes.
func RegisterCallbacks(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("diquis:stamp_create", stampCreate); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("diquis:tenant_filter_update", applyTenantFilter); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("diquis:stamp_update", stampUpdate); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("diquis:tenant_filter", applyTenantFilter); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("diquis:tenant_filter_delete", applyTenantFilter); err != nil {
		return err
	}
	return nil
}

// stampCreate sets the tenant id and creation stamps on inserts. TenantId
// always comes from the scope, never from the caller.
func stampCreate(tx *gorm.DB) {
	if tx.Statement.Schema == nil {
		return
	}

	sc, hasScope := scope.FromContext(tx.Statement.Context)
	if schemaImplements[model.TenantOwned](tx.Statement.Schema) && !hasScope {
		_ = tx.AddError(ErrMissingScope)
		return
	}

	now := time.Now().UTC()
	eachValue(tx.Statement.ReflectValue, func(v interface{}) {
		if owned, ok := v.(model.TenantOwned); ok {
			owned.SetTenantID(sc.TenantID)
		}
		if auditable, ok := v.(model.Auditable); ok {
			auditable.StampCreated(now, sc.UserID)
		}
	})
}

// stampUpdate sets modification stamps and keeps the creation stamps
// immutable after insert.
func stampUpdate(tx *gorm.DB) {
	if tx.Statement.Schema == nil {
		return
	}
	if _, ok := tx.Get(softDeleteSetting); ok {
		return
	}
	if !schemaImplements[model.Auditable](tx.Statement.Schema) {
		return
	}

	sc, _ := scope.FromContext(tx.Statement.Context)
	now := time.Now().UTC()
	tx.Statement.SetColumn("last_modified_on", now, true)
	tx.Statement.SetColumn("last_modified_by", sc.UserID, true)

	// Creation stamps are written exactly once, at insert.
	tx.Statement.Omits = append(tx.Statement.Omits, "created_on", "created_by")
}

// applyTenantFilter ANDs `tenant_id = ?` onto every statement that touches a
// tenant-owned entity. There is no opt-out.
func applyTenantFilter(tx *gorm.DB) {
	if tx.Statement.Schema == nil {
		return
	}
	if !schemaImplements[model.TenantOwned](tx.Statement.Schema) {
		return
	}

	sc, ok := scope.FromContext(tx.Statement.Context)
	if !ok {
		_ = tx.AddError(ErrMissingScope)
		return
	}

	tx.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: "tenant_id"},
			Value:  sc.TenantID,
		},
	}})
}

// schemaImplements reports whether the schema's model type satisfies the
// capability interface T on its pointer receiver.
func schemaImplements[T any](s *schema.Schema) bool {
	_, ok := reflect.New(s.ModelType).Interface().(T)
	return ok
}

// eachValue visits every addressable model value in a statement's reflect
// value, covering both single-entity and batch operations.
func eachValue(rv reflect.Value, fn func(v interface{})) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Ptr {
				if elem.IsNil() {
					continue
				}
				fn(elem.Interface())
			} else if elem.CanAddr() {
				fn(elem.Addr().Interface())
			}
		}
	case reflect.Struct:
		if rv.CanAddr() {
			fn(rv.Addr().Interface())
		}
	}
}
