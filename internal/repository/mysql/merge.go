package mysql

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"
)

// isUnset reports whether an incoming field value means "keep current".
func isUnset(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// normalize collapses driver and Go representations of the same value so they
// compare equal: pointers are dereferenced, []byte becomes string, bool
// becomes 0/1 (MySQL tinyint and sqlite integer both scan as int64).
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch x := rv.Interface().(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return rv.Interface()
	}
}

func valueEqual(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if na == nil || nb == nil {
		return na == nil && nb == nil
	}
	return fmt.Sprint(na) == fmt.Sprint(nb)
}

// GetOrCreate is the generalized upsert primitive. It looks up the most
// recent row matching filterBy (column names); creates it when absent,
// merging in fields. For an existing row with differing fields it either
// appends a full new row (append-only kinds: snapshots) or mutates the row in
// place when updateInPlace is set (mutable-latest kinds: comments). Unset
// field values never count as a difference.
//
// Runs on the caller's transaction and never commits.
func GetOrCreate[T any](tx *gorm.DB, filterBy map[string]any, fields map[string]any, updateInPlace bool) (*T, error) {
	var obj T
	err := tx.Where(filterBy).Order("timestamp DESC, id DESC").First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return createRow[T](tx, filterBy, fields)
	}
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return &obj, nil
	}

	current := map[string]any{}
	if err := tx.Model(new(T)).Where(filterBy).Order("timestamp DESC, id DESC").Take(&current).Error; err != nil {
		return nil, err
	}
	changed := map[string]any{}
	for col, value := range fields {
		if isUnset(value) || valueEqual(current[col], value) {
			continue
		}
		changed[col] = value
	}
	if len(changed) == 0 {
		return &obj, nil
	}
	if !updateInPlace {
		return createRow[T](tx, filterBy, fields)
	}
	if err := tx.Model(&obj).UpdateColumns(changed).Error; err != nil {
		return nil, err
	}
	if err := tx.Where(filterBy).Order("timestamp DESC, id DESC").First(&obj).Error; err != nil {
		return nil, err
	}
	return &obj, nil
}

func createRow[T any](tx *gorm.DB, filterBy, fields map[string]any) (*T, error) {
	row := make(map[string]any, len(filterBy)+len(fields)+1)
	for col, value := range filterBy {
		row[col] = value
	}
	for col, value := range fields {
		if isUnset(value) {
			continue
		}
		row[col] = value
	}
	row["timestamp"] = time.Now().UTC()
	if err := tx.Model(new(T)).Create(row).Error; err != nil {
		return nil, err
	}
	var created T
	if err := tx.Where(filterBy).Order("id DESC").First(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

// GroupMerge describes one snapshot-group merge: the parent head row, the
// group prefix of its denormalized columns, and the snapshot table to append
// to on change.
type GroupMerge struct {
	Parent   any    // head model, e.g. *model.Account
	ParentID uint64
	ParentFK string // snapshot column referencing the parent, e.g. "account_id"
	Group    string // denormalized column prefix, e.g. "stats"
	Snapshot any    // snapshot model, e.g. *model.AccountStats
	Fields   map[string]any
}

// MergeGroup merges freshly observed field values into the parent's
// denormalized <group>_* columns. Unset values are substituted with the
// stored ones, so omission never erases state. <group>_last_update is stamped
// regardless of dirtiness. When at least one tracked field changed, one
// snapshot row carrying the full resolved field set is appended; identical
// consecutive observations write no row.
//
// Returns the dirty flag and the stamp so the caller can assign them onto its
// in-memory entity.
func MergeGroup(tx *gorm.DB, m GroupMerge) (bool, time.Time, error) {
	current := map[string]any{}
	if err := tx.Model(m.Parent).Where("id = ?", m.ParentID).Take(&current).Error; err != nil {
		return false, time.Time{}, err
	}

	dirty := false
	resolved := make(map[string]any, len(m.Fields))
	parentUpdates := map[string]any{}
	for name, value := range m.Fields {
		col := m.Group + "_" + name
		if isUnset(value) {
			resolved[name] = current[col]
			continue
		}
		resolved[name] = value
		if !valueEqual(current[col], value) {
			parentUpdates[col] = value
			dirty = true
		}
	}

	now := time.Now().UTC()
	parentUpdates[m.Group+"_last_update"] = now
	if err := tx.Model(m.Parent).Where("id = ?", m.ParentID).UpdateColumns(parentUpdates).Error; err != nil {
		return false, time.Time{}, err
	}

	if dirty {
		row := make(map[string]any, len(resolved)+2)
		for name, value := range resolved {
			row[name] = value
		}
		row[m.ParentFK] = m.ParentID
		row["timestamp"] = now
		if err := tx.Model(m.Snapshot).Create(row).Error; err != nil {
			return false, time.Time{}, err
		}
	}
	return dirty, now, nil
}
