package hunter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"metrico/internal/model"
)

func init() {
	Register("fake", func(options map[string]any) (Hunter, error) {
		return NewFake(options), nil
	})
}

// Fake is a deterministic in-memory hunter for development and seeding.
// Account identifiers are decimal indices, media identifiers "<acc>:<idx>",
// comment identifiers "<acc>:<idx>:<n>". Counts come from the options block
// (medias, comments, followers), so repeated fetches report identical values
// and merge into single snapshots.
type Fake struct {
	mu      sync.Mutex
	medias  int64
	comment int64
	follow  int64
	base    time.Time
}

func NewFake(options map[string]any) *Fake {
	return &Fake{
		medias:  optInt(options, "medias", 5),
		comment: optInt(options, "comments", 10),
		follow:  optInt(options, "followers", 100),
		base:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func optInt(options map[string]any, key string, fallback int64) int64 {
	switch v := options[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func (f *Fake) account(index int64) *Account {
	views := f.follow * f.medias * 3
	return &Account{
		Identifier: strconv.FormatInt(index, 10),
		Created:    &Created{Value: f.base.Add(time.Duration(index) * 24 * time.Hour)},
		Info: &AccountInfo{
			Name: Ptr(fmt.Sprintf("user-%d", index)),
			Bio:  Ptr(fmt.Sprintf("bio of user-%d", index)),
		},
		Stats: &AccountStats{
			Medias:        Ptr(f.medias),
			Views:         Ptr(views + index),
			Followers:     Ptr(f.follow + index),
			Subscriptions: Ptr(int64(0)),
		},
	}
}

func (f *Fake) media(accIndex, index int64) *Media {
	identifier := fmt.Sprintf("%d:%d", accIndex, index)
	return &Media{
		Identifier: identifier,
		MediaType:  model.MediaVideo,
		Account:    f.account(accIndex),
		Created:    &Created{Value: f.base.Add(time.Duration(accIndex*100+index) * time.Hour)},
		Info: &MediaInfo{
			Title:   Ptr("media " + identifier),
			Caption: Ptr("caption " + identifier),
		},
		Stats: &MediaStats{
			Comments: Ptr(f.comment),
			Likes:    Ptr(10 * (index + 1)),
			Views:    Ptr(100 * (index + 1)),
		},
	}
}

func (f *Fake) Analyze(ctx context.Context, query string, amount int, full bool) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Summary, 0, amount)
	for i := int64(0); i < int64(amount); i++ {
		out = append(out, f.account(i))
	}
	return out, nil
}

func (f *Fake) FetchAccount(ctx context.Context, identifier string) (*Account, error) {
	index, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account(index), nil
}

func (f *Fake) FetchMedia(ctx context.Context, identifier string) (*Media, error) {
	parts := strings.SplitN(identifier, ":", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	accIndex, err1 := strconv.ParseInt(parts[0], 10, 64)
	index, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.media(accIndex, index), nil
}

func (f *Fake) AccountMedia(ctx context.Context, identifier string, amount int) ([]*Media, error) {
	accIndex, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil {
		return nil, nil
	}
	f.mu.Lock()
	total := f.medias
	f.mu.Unlock()
	if amount > 0 && int64(amount) < total {
		total = int64(amount)
	}
	out := make([]*Media, 0, total)
	for i := int64(0); i < total; i++ {
		f.mu.Lock()
		out = append(out, f.media(accIndex, i))
		f.mu.Unlock()
	}
	return out, nil
}

func (f *Fake) AccountSubscriptions(ctx context.Context, identifier string, amount int) ([]*Subscription, error) {
	return nil, nil
}

func (f *Fake) MediaComments(ctx context.Context, identifier string, amount int) ([]*Comment, error) {
	f.mu.Lock()
	total := f.comment
	base := f.base
	f.mu.Unlock()
	if amount > 0 && int64(amount) < total {
		total = int64(amount)
	}
	out := make([]*Comment, 0, total)
	for i := int64(0); i < total; i++ {
		out = append(out, &Comment{
			Identifier: fmt.Sprintf("%s:%d", identifier, i),
			Content: &CommentContent{
				Text:      fmt.Sprintf("comment %d on %s", i, identifier),
				Likes:     i,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			},
		})
	}
	return out, nil
}
