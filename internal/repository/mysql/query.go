package mysql

import (
	"fmt"
	"time"

	"metrico/internal/model"

	"gorm.io/gorm"
)

// The query engine builds filterable, orderable, paginated reads over the
// three queryable kinds from a declarative description. Every query value is
// usable zero-initialized: no filters, newest created first.

// TimeRange is an inclusive datetime pair filter.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// AccountRef is the polymorphic account filter: exactly one of the variants
// is set. A list that collapses to one element is treated as the scalar case.
type AccountRef struct {
	name  *string
	id    *uint64
	names []string
	ids   []uint64
}

func ByName(name string) AccountRef    { return AccountRef{name: &name} }
func ByID(id uint64) AccountRef        { return AccountRef{id: &id} }
func ByNames(names []string) AccountRef { return AccountRef{names: names} }
func ByIDs(ids []uint64) AccountRef    { return AccountRef{ids: ids} }

func (f AccountRef) empty() bool {
	return f.name == nil && f.id == nil && len(f.names) == 0 && len(f.ids) == 0
}

// collapse folds single-element lists into the scalar variants before any SQL
// is built.
func (f AccountRef) collapse() AccountRef {
	if len(f.names) == 1 {
		return ByName(f.names[0])
	}
	if len(f.ids) == 1 {
		return ByID(f.ids[0])
	}
	return f
}

type AccountOrder int8

const (
	AccountByCreated AccountOrder = iota
	AccountByUpdated
	AccountByComments
	AccountByMedias
	AccountByViews
	AccountByFollowers
	AccountBySubscriptions
	AccountByRandom
)

type MediaOrder int8

const (
	MediaByCreated MediaOrder = iota
	MediaByComments
	MediaByLikes
	MediaByViews
	MediaByRandom
)

type CommentOrder int8

const (
	CommentByCreated CommentOrder = iota
	CommentByTimestamp
	CommentByLikes
	CommentByRandom
)

// orderNullsLast orders by col with NULLs sorted last regardless of
// direction. MySQL has no NULLS LAST, the IS NULL prefix works on both
// dialects.
func orderNullsLast(stmt *gorm.DB, col string, asc bool) *gorm.DB {
	dir := "DESC"
	if asc {
		dir = "ASC"
	}
	return stmt.Order(fmt.Sprintf("(%s IS NULL) ASC, %s %s", col, col, dir))
}

func applyLimitOffset(stmt *gorm.DB, limit, offset int) *gorm.DB {
	if offset > 0 {
		stmt = stmt.Offset(offset)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	return stmt
}

func applyCreated(stmt *gorm.DB, table string, created *TimeRange) *gorm.DB {
	if created == nil {
		return stmt
	}
	return stmt.Where(table+".created_at BETWEEN ? AND ?", created.From, created.To)
}

func applyStatus(stmt *gorm.DB, table string, status *model.Status) *gorm.DB {
	if status == nil {
		return stmt
	}
	return stmt.Where(table+".status = ?", *status)
}

// AccountQuery describes a read over accounts.
type AccountQuery struct {
	Limit    int
	Offset   int
	Created  *TimeRange
	Status   *model.Status
	Accounts AccountRef
	OrderBy  AccountOrder
	OrderAsc bool

	// Restrict to accounts that commented on these medias, or on any media
	// owned by these accounts. Either one switches the base query onto a
	// join through media_comment.
	CommentMedia        []uint64
	CommentMediaAccount []uint64

	// Accounts with zero stats snapshots / with a NULL current views field.
	StatsNull      bool
	StatsViewsNull bool
}

func (q AccountQuery) joinsComments() bool {
	return len(q.CommentMedia) > 0 || len(q.CommentMediaAccount) > 0 || q.OrderBy == AccountByComments
}

// filtered applies every filter but no ordering, grouping or pagination.
func (q AccountQuery) filtered(db *gorm.DB) *gorm.DB {
	stmt := db.Model(&model.Account{})
	if q.joinsComments() {
		stmt = stmt.Joins("JOIN media_comment ON media_comment.account_id = account.id")
	}
	if len(q.CommentMediaAccount) > 0 {
		stmt = stmt.Joins("JOIN media ON media.id = media_comment.media_id")
	}
	stmt = applyCreated(stmt, "account", q.Created)
	stmt = applyStatus(stmt, "account", q.Status)

	switch filter := q.Accounts.collapse(); {
	case filter.name != nil:
		stmt = stmt.Where("account.info_name = ?", *filter.name)
	case filter.id != nil:
		stmt = stmt.Where("account.id = ?", *filter.id)
	case len(filter.names) > 0:
		stmt = stmt.Where("account.info_name IN ?", filter.names)
	case len(filter.ids) > 0:
		stmt = stmt.Where("account.id IN ?", filter.ids)
	}

	if len(q.CommentMedia) == 1 {
		stmt = stmt.Where("media_comment.media_id = ?", q.CommentMedia[0])
	} else if len(q.CommentMedia) > 1 {
		stmt = stmt.Where("media_comment.media_id IN ?", q.CommentMedia)
	}
	if len(q.CommentMediaAccount) == 1 {
		stmt = stmt.Where("media.account_id = ?", q.CommentMediaAccount[0])
	} else if len(q.CommentMediaAccount) > 1 {
		stmt = stmt.Where("media.account_id IN ?", q.CommentMediaAccount)
	}

	if q.StatsNull {
		stmt = stmt.Where("NOT EXISTS (SELECT 1 FROM account_stats WHERE account_stats.account_id = account.id)")
	}
	if q.StatsViewsNull {
		stmt = stmt.Where("account.stats_views IS NULL")
	}
	return stmt
}

func (q AccountQuery) ordered(stmt *gorm.DB) *gorm.DB {
	switch q.OrderBy {
	case AccountByComments:
		if q.OrderAsc {
			return stmt.Order("COUNT(media_comment.id) ASC")
		}
		return stmt.Order("COUNT(media_comment.id) DESC")
	case AccountByRandom:
		return stmt.Order(randomExpr(stmt))
	case AccountByUpdated:
		return orderNullsLast(stmt, "account.stats_last_update", q.OrderAsc)
	case AccountByMedias:
		return orderNullsLast(stmt, "account.stats_medias", q.OrderAsc)
	case AccountByViews:
		return orderNullsLast(stmt, "account.stats_views", q.OrderAsc)
	case AccountByFollowers:
		return orderNullsLast(stmt, "account.stats_followers", q.OrderAsc)
	case AccountBySubscriptions:
		return orderNullsLast(stmt, "account.stats_subscriptions", q.OrderAsc)
	}
	return orderNullsLast(stmt, "account.created_at", q.OrderAsc)
}

// Build assembles the full statement: filters, grouping when the comment join
// is active, order, pagination.
func (q AccountQuery) Build(db *gorm.DB) *gorm.DB {
	stmt := q.filtered(db)
	if q.joinsComments() {
		stmt = stmt.Group("account.id")
	}
	stmt = q.ordered(stmt)
	return applyLimitOffset(stmt, q.Limit, q.Offset)
}

// Count reports the cardinality of the filtered set, ignoring limit/offset.
func (q AccountQuery) Count(db *gorm.DB) (int64, error) {
	var n int64
	stmt := q.filtered(db)
	if q.joinsComments() {
		// The join multiplies rows per comment; count distinct heads
		// instead of wrapping the grouped statement.
		err := stmt.Distinct("account.id").Count(&n).Error
		return n, err
	}
	err := stmt.Count(&n).Error
	return n, err
}

// Find materializes the query.
func (q AccountQuery) Find(db *gorm.DB) ([]model.Account, error) {
	var list []model.Account
	err := q.Build(db).Find(&list).Error
	return list, err
}

// Iterate yields entities lazily in the resolved order. Returning an error
// from fn stops the iteration.
func (q AccountQuery) Iterate(db *gorm.DB, fn func(*model.Account) error) error {
	rows, err := q.Build(db).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var account model.Account
		if err := db.ScanRows(rows, &account); err != nil {
			return err
		}
		if err := fn(&account); err != nil {
			return err
		}
	}
	return rows.Err()
}

// IDs collects the ids of the matching rows in the resolved order.
func (q AccountQuery) IDs(db *gorm.DB) ([]uint64, error) {
	var ids []uint64
	err := q.Iterate(db, func(a *model.Account) error {
		ids = append(ids, a.ID)
		return nil
	})
	return ids, err
}

// MediaQuery describes a read over medias.
type MediaQuery struct {
	Limit    int
	Offset   int
	Created  *TimeRange
	Status   *model.Status
	Accounts AccountRef // owning account; names substring-match
	OrderBy  MediaOrder
	OrderAsc bool
}

func (q MediaQuery) filtered(db *gorm.DB) *gorm.DB {
	stmt := db.Model(&model.Media{})
	stmt = applyCreated(stmt, "media", q.Created)
	stmt = applyStatus(stmt, "media", q.Status)

	switch filter := q.Accounts.collapse(); {
	case filter.name != nil:
		stmt = stmt.Joins("JOIN account ON account.id = media.account_id").
			Where("account.info_name LIKE ?", "%"+*filter.name+"%")
	case filter.id != nil:
		stmt = stmt.Where("media.account_id = ?", *filter.id)
	case len(filter.names) > 0:
		stmt = stmt.Joins("JOIN account ON account.id = media.account_id").
			Where("account.info_name IN ?", filter.names)
	case len(filter.ids) > 0:
		stmt = stmt.Where("media.account_id IN ?", filter.ids)
	}
	return stmt
}

func (q MediaQuery) ordered(stmt *gorm.DB) *gorm.DB {
	switch q.OrderBy {
	case MediaByComments:
		return orderNullsLast(stmt, "media.stats_comments", q.OrderAsc)
	case MediaByLikes:
		return orderNullsLast(stmt, "media.stats_likes", q.OrderAsc)
	case MediaByViews:
		return orderNullsLast(stmt, "media.stats_views", q.OrderAsc)
	case MediaByRandom:
		return stmt.Order(randomExpr(stmt))
	}
	return orderNullsLast(stmt, "media.created_at", q.OrderAsc)
}

func (q MediaQuery) Build(db *gorm.DB) *gorm.DB {
	return applyLimitOffset(q.ordered(q.filtered(db)), q.Limit, q.Offset)
}

func (q MediaQuery) Count(db *gorm.DB) (int64, error) {
	var n int64
	err := q.filtered(db).Count(&n).Error
	return n, err
}

func (q MediaQuery) Find(db *gorm.DB) ([]model.Media, error) {
	var list []model.Media
	err := q.Build(db).Find(&list).Error
	return list, err
}

func (q MediaQuery) Iterate(db *gorm.DB, fn func(*model.Media) error) error {
	rows, err := q.Build(db).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var media model.Media
		if err := db.ScanRows(rows, &media); err != nil {
			return err
		}
		if err := fn(&media); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (q MediaQuery) IDs(db *gorm.DB) ([]uint64, error) {
	var ids []uint64
	err := q.Iterate(db, func(m *model.Media) error {
		ids = append(ids, m.ID)
		return nil
	})
	return ids, err
}

// CommentQuery describes a read over media comments.
type CommentQuery struct {
	Limit    int
	Offset   int
	Created  *TimeRange
	Status   *model.Status
	Accounts AccountRef // commenting account; names substring-match
	OrderBy  CommentOrder
	OrderAsc bool

	// Restrict to comments on medias owned by these accounts.
	MediaAccount []uint64
}

func (q CommentQuery) filtered(db *gorm.DB) *gorm.DB {
	stmt := db.Model(&model.MediaComment{})
	stmt = applyCreated(stmt, "media_comment", q.Created)
	stmt = applyStatus(stmt, "media_comment", q.Status)

	switch filter := q.Accounts.collapse(); {
	case filter.name != nil:
		stmt = stmt.Joins("JOIN account ON account.id = media_comment.account_id").
			Where("account.info_name LIKE ?", "%"+*filter.name+"%")
	case filter.id != nil:
		stmt = stmt.Where("media_comment.account_id = ?", *filter.id)
	case len(filter.names) > 0:
		stmt = stmt.Joins("JOIN account ON account.id = media_comment.account_id").
			Where("account.info_name IN ?", filter.names)
	case len(filter.ids) > 0:
		stmt = stmt.Where("media_comment.account_id IN ?", filter.ids)
	}

	if len(q.MediaAccount) == 1 {
		stmt = stmt.Joins("JOIN media ON media.id = media_comment.media_id").
			Where("media.account_id = ?", q.MediaAccount[0])
	} else if len(q.MediaAccount) > 1 {
		stmt = stmt.Joins("JOIN media ON media.id = media_comment.media_id").
			Where("media.account_id IN ?", q.MediaAccount)
	}
	return stmt
}

func (q CommentQuery) ordered(stmt *gorm.DB) *gorm.DB {
	switch q.OrderBy {
	case CommentByTimestamp:
		return orderNullsLast(stmt, "media_comment.timestamp", q.OrderAsc)
	case CommentByLikes:
		return orderNullsLast(stmt, "media_comment.likes", q.OrderAsc)
	case CommentByRandom:
		return stmt.Order(randomExpr(stmt))
	}
	return orderNullsLast(stmt, "media_comment.created_at", q.OrderAsc)
}

func (q CommentQuery) Build(db *gorm.DB) *gorm.DB {
	return applyLimitOffset(q.ordered(q.filtered(db)), q.Limit, q.Offset)
}

func (q CommentQuery) Count(db *gorm.DB) (int64, error) {
	var n int64
	err := q.filtered(db).Count(&n).Error
	return n, err
}

func (q CommentQuery) Find(db *gorm.DB) ([]model.MediaComment, error) {
	var list []model.MediaComment
	err := q.Build(db).Find(&list).Error
	return list, err
}

func (q CommentQuery) Iterate(db *gorm.DB, fn func(*model.MediaComment) error) error {
	rows, err := q.Build(db).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var comment model.MediaComment
		if err := db.ScanRows(rows, &comment); err != nil {
			return err
		}
		if err := fn(&comment); err != nil {
			return err
		}
	}
	return rows.Err()
}
