package service

import (
	"context"
	"fmt"
	"time"

	"metrico/internal/hunter"
	"metrico/internal/model"
	"metrico/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Relation depth sentinels. A non-negative depth is literal: 0 refreshes the
// whole relation, n > 0 the n most recent members.
const (
	DepthAuto = -2 // compare reported total vs stored rows, refresh on mismatch
	DepthSkip = -1
	DepthAll  = 0
)

// UpdateOptions selects how deep a single account update cascades.
type UpdateOptions struct {
	MediaCount        int
	CommentCount      int
	SubscriptionCount int
}

// SkipAll is the cheapest update: head facts only, no cascade.
func SkipAll() UpdateOptions {
	return UpdateOptions{MediaCount: DepthSkip, CommentCount: DepthSkip, SubscriptionCount: DepthSkip}
}

// UpdateService drives the fetch-merge-cascade cycle for one entity at a
// time. Every public method runs inside its own transaction, so concurrent
// updates of distinct entities never share state.
type UpdateService struct {
	DB       *gorm.DB
	Hunters  hunter.Set
	Accounts *mysql.AccountRepository
	Log      *zap.Logger
}

func NewUpdateService(db *gorm.DB, hunters hunter.Set, accounts *mysql.AccountRepository, log *zap.Logger) *UpdateService {
	return &UpdateService{DB: db, Hunters: hunters, Accounts: accounts, Log: log}
}

func (s *UpdateService) hunterFor(platform string) (hunter.Hunter, error) {
	h, ok := s.Hunters[platform]
	if !ok {
		return nil, fmt.Errorf("no hunter configured for platform %q", platform)
	}
	return h, nil
}

// resolveDepth turns the auto sentinel into skip or all by comparing the
// platform-reported member total against the stored row count. A missing
// stats block means the platform told us nothing, so nothing is refreshed; a
// present block with an unknown count forces a full refresh.
func resolveDepth(requested int, reported *int64, hasStats bool, stored int64) int {
	if requested != DepthAuto {
		return requested
	}
	if !hasStats {
		return DepthSkip
	}
	if reported == nil {
		return DepthAll
	}
	if *reported != stored {
		return DepthAll
	}
	return DepthSkip
}

// UpdateAccount refreshes one account from its platform: head facts first,
// then the media cascade, then subscriptions. A platform that returns no data
// marks the account FAIL without failing the call.
func (s *UpdateService) UpdateAccount(ctx context.Context, id uint64, opt UpdateOptions) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.updateAccount(ctx, tx, id, nil, opt)
	})
}

func (s *UpdateService) updateAccount(ctx context.Context, tx *gorm.DB, id uint64, data *hunter.Account, opt UpdateOptions) error {
	account, err := s.Accounts.GetAccount(tx, id)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account %d not found", id)
	}
	h, err := s.hunterFor(account.Platform)
	if err != nil {
		return err
	}
	if data == nil {
		if data, err = h.FetchAccount(ctx, account.Identifier); err != nil {
			return err
		}
	}
	if data == nil {
		s.Log.Warn("platform returned no data for account",
			zap.Uint64("account", account.ID), zap.String("identifier", account.Identifier))
		return s.Accounts.SetStatus(tx, &model.Account{}, account.ID, model.StatusFail)
	}

	// The account's own created timestamp comes from Analyze seeding, not
	// from the periodic refresh.
	if err := s.Accounts.ApplyAccountFacts(tx, account, data.Info, data.Stats); err != nil {
		return err
	}

	storedMedias, err := s.Accounts.MediaCount(tx, account.ID)
	if err != nil {
		return err
	}
	var reportedMedias *int64
	if data.Stats != nil {
		reportedMedias = data.Stats.Medias
	}
	if depth := resolveDepth(opt.MediaCount, reportedMedias, data.Stats != nil, storedMedias); depth >= 0 {
		if err := s.updateAccountMedias(ctx, tx, h, account, depth, opt.CommentCount); err != nil {
			return err
		}
	}

	// Subscriptions resolve after the media cascade so a media-triggered
	// commenter insert cannot skew the comparison mid-update.
	if opt.SubscriptionCount != DepthSkip {
		storedSubs, err := s.Accounts.SubscriptionCount(tx, account.ID)
		if err != nil {
			return err
		}
		var reportedSubs *int64
		if data.Stats != nil {
			reportedSubs = data.Stats.Subscriptions
		}
		depth := resolveDepth(opt.SubscriptionCount, reportedSubs, data.Stats != nil, storedSubs)
		if err := s.updateAccountSubscriptions(ctx, tx, h, account, depth); err != nil {
			return err
		}
	}

	if err := s.Accounts.SetStatus(tx, &model.Account{}, account.ID, model.StatusOkay); err != nil {
		return err
	}
	account.Status = model.StatusOkay
	return nil
}

// updateAccountMedias walks the platform's media listing. One broken media
// marks that media FAIL and moves on; only storage errors abort the account.
func (s *UpdateService) updateAccountMedias(ctx context.Context, tx *gorm.DB, h hunter.Hunter, account *model.Account, depth, commentCount int) error {
	summaries, err := h.AccountMedia(ctx, account.Identifier, depth)
	if err != nil {
		return err
	}
	for _, summary := range summaries {
		if summary == nil {
			continue
		}
		media, err := s.Accounts.CreateMedia(tx, account, summary, false)
		if err != nil {
			return err
		}
		data := summary
		if summary.IdentityOnly() {
			data = nil // listing entry only, refetch below
		}
		if err := s.updateMedia(ctx, tx, h, media, data, commentCount); err != nil {
			s.Log.Warn("media update failed, skipping",
				zap.Uint64("media", media.ID), zap.String("identifier", media.Identifier), zap.Error(err))
			if err := s.Accounts.SetStatus(tx, &model.Media{}, media.ID, model.StatusFail); err != nil {
				return err
			}
		}
	}
	return nil
}

// updateAccountSubscriptions stamps the check time and, for a non-negative
// depth, merges the subscription edges. Subscribed accounts are created with
// a full fact merge, so one subscription listing can seed many accounts.
func (s *UpdateService) updateAccountSubscriptions(ctx context.Context, tx *gorm.DB, h hunter.Hunter, account *model.Account, depth int) error {
	now := time.Now()
	if err := tx.Model(&model.Account{}).Where("id = ?", account.ID).
		UpdateColumn("subscriptions_last_update", now).Error; err != nil {
		return err
	}
	account.SubscriptionsLastUpdate = now
	if depth < 0 {
		return nil
	}
	subs, err := h.AccountSubscriptions(ctx, account.Identifier, depth)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if err := s.Accounts.ApplyAccountFacts(tx, account, sub); err != nil {
			return err
		}
	}
	return nil
}

// UpdateMedia refreshes one media and optionally its comments.
func (s *UpdateService) UpdateMedia(ctx context.Context, id uint64, commentCount int) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		media, err := s.Accounts.GetMedia(tx, id)
		if err != nil {
			return err
		}
		if media == nil {
			return fmt.Errorf("media %d not found", id)
		}
		account, err := s.Accounts.GetAccount(tx, media.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account %d not found for media %d", media.AccountID, id)
		}
		h, err := s.hunterFor(account.Platform)
		if err != nil {
			return err
		}
		return s.updateMedia(ctx, tx, h, media, nil, commentCount)
	})
}

func (s *UpdateService) updateMedia(ctx context.Context, tx *gorm.DB, h hunter.Hunter, media *model.Media, data *hunter.Media, commentCount int) error {
	var err error
	if data == nil {
		if data, err = h.FetchMedia(ctx, media.Identifier); err != nil {
			return err
		}
	}
	if data == nil {
		s.Log.Warn("platform returned no data for media",
			zap.Uint64("media", media.ID), zap.String("identifier", media.Identifier))
		return s.Accounts.SetStatus(tx, &model.Media{}, media.ID, model.StatusFail)
	}

	if err := s.Accounts.ApplyMediaFacts(tx, media, data.Created, data.Info, data.Stats); err != nil {
		return err
	}

	if media.InfoDisableComments {
		commentCount = DepthSkip
	}
	if commentCount != DepthSkip {
		stored, err := s.Accounts.CommentCount(tx, media.ID)
		if err != nil {
			return err
		}
		var reported *int64
		if data.Stats != nil {
			reported = data.Stats.Comments
		}
		depth := resolveDepth(commentCount, reported, data.Stats != nil, stored)
		if err := s.updateMediaComments(ctx, tx, h, media, depth); err != nil {
			return err
		}
	}

	if err := s.Accounts.SetStatus(tx, &model.Media{}, media.ID, model.StatusOkay); err != nil {
		return err
	}
	media.Status = model.StatusOkay
	return nil
}

func (s *UpdateService) updateMediaComments(ctx context.Context, tx *gorm.DB, h hunter.Hunter, media *model.Media, depth int) error {
	now := time.Now()
	if err := tx.Model(&model.Media{}).Where("id = ?", media.ID).
		UpdateColumn("comments_last_update", now).Error; err != nil {
		return err
	}
	media.CommentsLastUpdate = now
	if depth < 0 {
		return nil
	}
	comments, err := h.MediaComments(ctx, media.Identifier, depth)
	if err != nil {
		return err
	}
	for _, comment := range comments {
		if comment == nil {
			continue
		}
		if err := s.Accounts.ApplyMediaFacts(tx, media, comment); err != nil {
			return err
		}
	}
	return nil
}

// Analyze runs a platform search and seeds entities from the summaries it
// yields. With full set, the summaries' facts are merged immediately;
// otherwise only head rows are created. Returns the ids of the accounts and
// medias touched, in listing order.
func (s *UpdateService) Analyze(ctx context.Context, platform, query string, amount int, full bool) (accountIDs, mediaIDs []uint64, err error) {
	h, err := s.hunterFor(platform)
	if err != nil {
		return nil, nil, err
	}
	summaries, err := h.Analyze(ctx, query, amount, full)
	if err != nil {
		return nil, nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, summary := range summaries {
			switch v := summary.(type) {
			case *hunter.Account:
				account, err := s.Accounts.CreateAccount(tx, platform, v, full)
				if err != nil {
					return err
				}
				if account != nil {
					accountIDs = append(accountIDs, account.ID)
				}
			case *hunter.Media:
				if v == nil || v.Account == nil {
					s.Log.Warn("media summary without owner, skipping", zap.String("platform", platform))
					continue
				}
				account, err := s.Accounts.CreateAccount(tx, platform, v.Account, full)
				if err != nil {
					return err
				}
				media, err := s.Accounts.CreateMedia(tx, account, v, full)
				if err != nil {
					return err
				}
				if media != nil {
					mediaIDs = append(mediaIDs, media.ID)
				}
			default:
				s.Log.Warn("unknown summary kind", zap.String("type", fmt.Sprintf("%T", summary)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return accountIDs, mediaIDs, nil
}

// UpdateAccounts refreshes every account a query matches, fanning out over
// the worker pool.
func (s *UpdateService) UpdateAccounts(ctx context.Context, q mysql.AccountQuery, threads int, opt UpdateOptions) (Report, error) {
	ids, err := q.IDs(s.DB.WithContext(ctx))
	if err != nil {
		return Report{}, err
	}
	return UpdateList(ctx, ids, threads, s.Log, func(ctx context.Context, id uint64) error {
		return s.UpdateAccount(ctx, id, opt)
	}), nil
}

// UpdateMedias refreshes every media a query matches.
func (s *UpdateService) UpdateMedias(ctx context.Context, q mysql.MediaQuery, threads, commentCount int) (Report, error) {
	ids, err := q.IDs(s.DB.WithContext(ctx))
	if err != nil {
		return Report{}, err
	}
	return UpdateList(ctx, ids, threads, s.Log, func(ctx context.Context, id uint64) error {
		return s.UpdateMedia(ctx, id, commentCount)
	}), nil
}
