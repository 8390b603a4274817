package hunter

import (
	"time"

	"metrico/internal/model"
)

// The summary types below are the transfer shape every hunter produces. A nil
// pointer field means "unknown, do not overwrite"; the merge layer substitutes
// the stored value for it.

type Created struct {
	Value time.Time
}

type AccountInfo struct {
	Name *string
	Bio  *string
}

type AccountStats struct {
	Medias        *int64
	Views         *int64
	Followers     *int64
	Subscriptions *int64
}

type Account struct {
	Identifier string
	Created    *Created
	Info       *AccountInfo
	Stats      *AccountStats
}

type MediaInfo struct {
	Title           *string
	Caption         *string
	DisableComments bool
}

type MediaStats struct {
	Comments *int64
	Likes    *int64
	Views    *int64
}

type Media struct {
	Identifier string
	MediaType  model.MediaType
	Account    *Account
	Created    *Created
	Info       *MediaInfo
	Stats      *MediaStats
}

type CommentContent struct {
	Text      string
	Likes     int64
	CreatedAt time.Time
}

type Comment struct {
	Identifier string
	Account    *Account
	Content    *CommentContent
}

type Subscription struct {
	Account Account
}

// IdentityOnly reports whether the summary carries nothing beyond the
// identifier, i.e. a listing entry that still needs its own fetch.
func (m *Media) IdentityOnly() bool {
	return m.Created == nil && m.Info == nil && m.Stats == nil
}

// Summary is what Analyze yields: either an *Account or a *Media.
type Summary interface{ summary() }

func (*Account) summary() {}
func (*Media) summary()   {}

// AccountFact is one update argument accepted by the account fact dispatcher.
// Exactly the types below implement it; anything else is rejected with a
// warning, never silently applied.
type AccountFact interface{ accountFact() }

func (*Account) accountFact()      {}
func (*Created) accountFact()      {}
func (*AccountInfo) accountFact()  {}
func (*AccountStats) accountFact() {}
func (*Subscription) accountFact() {}

// MediaFact mirrors AccountFact for media updates.
type MediaFact interface{ mediaFact() }

func (*Media) mediaFact()      {}
func (*Created) mediaFact()    {}
func (*MediaInfo) mediaFact()  {}
func (*MediaStats) mediaFact() {}
func (*Comment) mediaFact()    {}

// Ptr is a convenience for building summaries with optional fields.
func Ptr[T any](v T) *T { return &v }
