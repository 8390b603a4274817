package mysql

import (
	"errors"
	"fmt"

	"metrico/internal/hunter"
	"metrico/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountRepository owns account and media rows plus their snapshot history.
// All write methods run on the caller's transaction and never commit.
type AccountRepository struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewAccountRepository(db *gorm.DB, log *zap.Logger) *AccountRepository {
	return &AccountRepository{DB: db, Log: log}
}

// CreateOrGetAccount resolves the unique (platform, identifier) pair,
// creating the head row on first observation.
func (r *AccountRepository) CreateOrGetAccount(tx *gorm.DB, platform, identifier string) (*model.Account, error) {
	var account model.Account
	err := tx.Where("platform = ? AND identifier = ?", platform, identifier).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = model.Account{Platform: platform, Identifier: identifier}
		if err := tx.Create(&account).Error; err != nil {
			return nil, err
		}
		return &account, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateAccount creates or resolves the account named by the summary and,
// when update is set, merges the summary's facts into it.
func (r *AccountRepository) CreateAccount(tx *gorm.DB, platform string, data *hunter.Account, update bool) (*model.Account, error) {
	if data == nil {
		return nil, nil
	}
	account, err := r.CreateOrGetAccount(tx, platform, data.Identifier)
	if err != nil {
		return nil, err
	}
	if update {
		if err := r.ApplyAccountFacts(tx, account, data); err != nil {
			return nil, err
		}
	}
	return account, nil
}

// CreateOrGetMedia resolves the unique (account, identifier, type) triple,
// creating the row on first observation.
func (r *AccountRepository) CreateOrGetMedia(tx *gorm.DB, account *model.Account, identifier string, mediaType model.MediaType) (*model.Media, error) {
	var media model.Media
	err := tx.Where("account_id = ? AND identifier = ? AND media_type = ?", account.ID, identifier, mediaType).First(&media).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		media = model.Media{AccountID: account.ID, Identifier: identifier, MediaType: mediaType}
		if err := tx.Create(&media).Error; err != nil {
			return nil, err
		}
		return &media, nil
	}
	if err != nil {
		return nil, err
	}
	return &media, nil
}

func (r *AccountRepository) CreateMedia(tx *gorm.DB, account *model.Account, data *hunter.Media, update bool) (*model.Media, error) {
	if data == nil {
		return nil, nil
	}
	media, err := r.CreateOrGetMedia(tx, account, data.Identifier, data.MediaType)
	if err != nil {
		return nil, err
	}
	if update {
		if err := r.ApplyMediaFacts(tx, media, data); err != nil {
			return nil, err
		}
	}
	return media, nil
}

// GetAccount fetches one account by id. Returns (nil, nil) when absent.
func (r *AccountRepository) GetAccount(tx *gorm.DB, id uint64) (*model.Account, error) {
	var account model.Account
	err := tx.First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccountByName fetches one account by its current info name.
func (r *AccountRepository) GetAccountByName(tx *gorm.DB, name string) (*model.Account, error) {
	var account model.Account
	err := tx.First(&account, "info_name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetMedia(tx *gorm.DB, id uint64) (*model.Media, error) {
	var media model.Media
	err := tx.First(&media, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &media, nil
}

// SetStatus marks an entity row OKAY or FAIL.
func (r *AccountRepository) SetStatus(tx *gorm.DB, entity any, id uint64, status model.Status) error {
	return tx.Model(entity).Where("id = ?", id).UpdateColumn("status", status).Error
}

// ApplyAccountFacts dispatches heterogeneous update facts onto an account.
// Handling is exhaustive over the AccountFact variants; anything else is
// logged and skipped, mirroring the merge layer's tolerance for partial data.
func (r *AccountRepository) ApplyAccountFacts(tx *gorm.DB, account *model.Account, facts ...hunter.AccountFact) error {
	for _, fact := range facts {
		switch v := fact.(type) {
		case nil:
			continue

		case *hunter.Account:
			if v == nil {
				continue
			}
			if err := r.ApplyAccountFacts(tx, account, v.Created, v.Info, v.Stats); err != nil {
				return err
			}

		case *hunter.Created:
			if v == nil || v.Value.IsZero() {
				continue
			}
			if err := tx.Model(&model.Account{}).Where("id = ?", account.ID).UpdateColumn("created_at", v.Value).Error; err != nil {
				return err
			}
			account.CreatedAt = v.Value

		case *hunter.AccountInfo:
			if v == nil {
				continue
			}
			dirty, stamped, err := MergeGroup(tx, GroupMerge{
				Parent:   &model.Account{},
				ParentID: account.ID,
				ParentFK: "account_id",
				Group:    "info",
				Snapshot: &model.AccountInfo{},
				Fields:   map[string]any{"name": v.Name, "bio": v.Bio},
			})
			if err != nil {
				return err
			}
			account.InfoLastUpdate = stamped
			if dirty {
				if v.Name != nil {
					account.InfoName = v.Name
				}
				if v.Bio != nil {
					account.InfoBio = v.Bio
				}
			}

		case *hunter.AccountStats:
			if v == nil {
				continue
			}
			dirty, stamped, err := MergeGroup(tx, GroupMerge{
				Parent:   &model.Account{},
				ParentID: account.ID,
				ParentFK: "account_id",
				Group:    "stats",
				Snapshot: &model.AccountStats{},
				Fields: map[string]any{
					"medias":        v.Medias,
					"views":         v.Views,
					"followers":     v.Followers,
					"subscriptions": v.Subscriptions,
				},
			})
			if err != nil {
				return err
			}
			account.StatsLastUpdate = stamped
			if dirty {
				if v.Medias != nil {
					account.StatsMedias = v.Medias
				}
				if v.Views != nil {
					account.StatsViews = v.Views
				}
				if v.Followers != nil {
					account.StatsFollowers = v.Followers
				}
				if v.Subscriptions != nil {
					account.StatsSubscriptions = v.Subscriptions
				}
			}

		case *hunter.Subscription:
			if v == nil {
				continue
			}
			subscribed, err := r.CreateAccount(tx, account.Platform, &v.Account, true)
			if err != nil {
				return err
			}
			if subscribed == nil {
				continue
			}
			if _, err := GetOrCreate[model.AccountSubscription](tx, map[string]any{
				"account_id":            account.ID,
				"subscribed_account_id": subscribed.ID,
			}, nil, false); err != nil {
				return err
			}

		default:
			r.Log.Warn("fact type cannot be applied to an account", zap.String("type", fmt.Sprintf("%T", fact)))
		}
	}
	return nil
}

// ApplyMediaFacts is the media-side fact dispatcher.
func (r *AccountRepository) ApplyMediaFacts(tx *gorm.DB, media *model.Media, facts ...hunter.MediaFact) error {
	for _, fact := range facts {
		switch v := fact.(type) {
		case nil:
			continue

		case *hunter.Media:
			if v == nil {
				continue
			}
			if err := r.ApplyMediaFacts(tx, media, v.Created, v.Info, v.Stats); err != nil {
				return err
			}

		case *hunter.Created:
			if v == nil || v.Value.IsZero() {
				continue
			}
			if err := tx.Model(&model.Media{}).Where("id = ?", media.ID).UpdateColumn("created_at", v.Value).Error; err != nil {
				return err
			}
			media.CreatedAt = v.Value

		case *hunter.MediaInfo:
			if v == nil {
				continue
			}
			dirty, stamped, err := MergeGroup(tx, GroupMerge{
				Parent:   &model.Media{},
				ParentID: media.ID,
				ParentFK: "media_id",
				Group:    "info",
				Snapshot: &model.MediaInfo{},
				Fields: map[string]any{
					"title":            v.Title,
					"caption":          v.Caption,
					"disable_comments": v.DisableComments,
				},
			})
			if err != nil {
				return err
			}
			media.InfoLastUpdate = stamped
			if dirty {
				if v.Title != nil {
					media.InfoTitle = v.Title
				}
				if v.Caption != nil {
					media.InfoCaption = v.Caption
				}
				media.InfoDisableComments = v.DisableComments
			}

		case *hunter.MediaStats:
			if v == nil {
				continue
			}
			dirty, stamped, err := MergeGroup(tx, GroupMerge{
				Parent:   &model.Media{},
				ParentID: media.ID,
				ParentFK: "media_id",
				Group:    "stats",
				Snapshot: &model.MediaStats{},
				Fields: map[string]any{
					"comments": v.Comments,
					"likes":    v.Likes,
					"views":    v.Views,
				},
			})
			if err != nil {
				return err
			}
			media.StatsLastUpdate = stamped
			if dirty {
				if v.Comments != nil {
					media.StatsComments = v.Comments
				}
				if v.Likes != nil {
					media.StatsLikes = v.Likes
				}
				if v.Views != nil {
					media.StatsViews = v.Views
				}
			}

		case *hunter.Comment:
			if v == nil {
				continue
			}
			fields := map[string]any{}
			if v.Content != nil {
				fields["text"] = v.Content.Text
				fields["likes"] = v.Content.Likes
				fields["created_at"] = v.Content.CreatedAt
			}
			if v.Account != nil {
				platform, err := r.platformOf(tx, media.AccountID)
				if err != nil {
					return err
				}
				commenter, err := r.CreateAccount(tx, platform, v.Account, true)
				if err != nil {
					return err
				}
				if commenter != nil {
					fields["account_id"] = commenter.ID
				}
			}
			if _, err := GetOrCreate[model.MediaComment](tx, map[string]any{
				"media_id":   media.ID,
				"identifier": v.Identifier,
			}, fields, true); err != nil {
				return err
			}

		default:
			r.Log.Warn("fact type cannot be applied to a media", zap.String("type", fmt.Sprintf("%T", fact)))
		}
	}
	return nil
}

func (r *AccountRepository) platformOf(tx *gorm.DB, accountID uint64) (string, error) {
	var platform string
	err := tx.Model(&model.Account{}).Select("platform").Where("id = ?", accountID).Scan(&platform).Error
	return platform, err
}

// MediaCount reports how many media rows the account owns.
func (r *AccountRepository) MediaCount(tx *gorm.DB, accountID uint64) (int64, error) {
	var n int64
	err := tx.Model(&model.Media{}).Where("account_id = ?", accountID).Count(&n).Error
	return n, err
}

// SubscriptionCount reports how many outgoing subscription edges the account
// owns.
func (r *AccountRepository) SubscriptionCount(tx *gorm.DB, accountID uint64) (int64, error) {
	var n int64
	err := tx.Model(&model.AccountSubscription{}).Where("account_id = ?", accountID).Count(&n).Error
	return n, err
}

// CommentCount reports how many comment rows the media owns.
func (r *AccountRepository) CommentCount(tx *gorm.DB, mediaID uint64) (int64, error) {
	var n int64
	err := tx.Model(&model.MediaComment{}).Where("media_id = ?", mediaID).Count(&n).Error
	return n, err
}

// Medias slices the account's media relation without materializing it fully,
// newest created first.
func (r *AccountRepository) Medias(tx *gorm.DB, accountID uint64, offset, limit int) ([]model.Media, error) {
	var list []model.Media
	q := tx.Where("account_id = ?", accountID).Order("created_at DESC, id DESC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// Comments slices the media's comment relation, newest created first.
func (r *AccountRepository) Comments(tx *gorm.DB, mediaID uint64, offset, limit int) ([]model.MediaComment, error) {
	var list []model.MediaComment
	q := tx.Where("media_id = ?", mediaID).Order("created_at DESC, id DESC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// Stats returns the row count per entity kind.
func (r *AccountRepository) Stats(tx *gorm.DB) (map[string]int64, error) {
	tables := map[string]any{
		"Account":              &model.Account{},
		"Account-Subscription": &model.AccountSubscription{},
		"Account-Info":         &model.AccountInfo{},
		"Account-Data":         &model.AccountStats{},
		"Media":                &model.Media{},
		"Media-Info":           &model.MediaInfo{},
		"Media-Data":           &model.MediaStats{},
		"Media-Comment":        &model.MediaComment{},
	}
	out := make(map[string]int64, len(tables))
	for name, entity := range tables {
		var n int64
		if err := tx.Model(entity).Count(&n).Error; err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, nil
}
