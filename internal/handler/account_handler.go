package handler

import (
	"net/http"
	"strconv"

	"metrico/internal/model"
	"metrico/internal/repository/mysql"
	"metrico/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AccountHandler struct {
	db       *gorm.DB
	accounts *mysql.AccountRepository
	svc      *service.UpdateService
}

func NewAccountHandler(db *gorm.DB, accounts *mysql.AccountRepository, svc *service.UpdateService) *AccountHandler {
	return &AccountHandler{db: db, accounts: accounts, svc: svc}
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryStatus(c *gin.Context) (*model.Status, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	switch raw {
	case "okay":
		s := model.StatusOkay
		return &s, true
	case "fail":
		s := model.StatusFail
		return &s, true
	}
	return nil, false
}

func accountFilter(c *gin.Context) (mysql.AccountRef, bool) {
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return mysql.AccountRef{}, false
		}
		return mysql.ByID(id), true
	}
	if name := c.Query("account"); name != "" {
		return mysql.ByName(name), true
	}
	return mysql.AccountRef{}, true
}

var accountOrders = map[string]mysql.AccountOrder{
	"":              mysql.AccountByCreated,
	"created":       mysql.AccountByCreated,
	"updated":       mysql.AccountByUpdated,
	"comments":      mysql.AccountByComments,
	"medias":        mysql.AccountByMedias,
	"views":         mysql.AccountByViews,
	"followers":     mysql.AccountByFollowers,
	"subscriptions": mysql.AccountBySubscriptions,
	"random":        mysql.AccountByRandom,
}

var mediaOrders = map[string]mysql.MediaOrder{
	"":         mysql.MediaByCreated,
	"created":  mysql.MediaByCreated,
	"comments": mysql.MediaByComments,
	"likes":    mysql.MediaByLikes,
	"views":    mysql.MediaByViews,
	"random":   mysql.MediaByRandom,
}

var commentOrders = map[string]mysql.CommentOrder{
	"":        mysql.CommentByCreated,
	"created": mysql.CommentByCreated,
	"seen":    mysql.CommentByTimestamp,
	"likes":   mysql.CommentByLikes,
	"random":  mysql.CommentByRandom,
}

// ListAccounts lists accounts matching the query parameters.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	limit, ok1 := queryInt(c, "limit", 50)
	offset, ok2 := queryInt(c, "offset", 0)
	status, ok3 := queryStatus(c)
	filter, ok4 := accountFilter(c)
	order, ok5 := accountOrders[c.Query("order")]
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	q := mysql.AccountQuery{
		Limit:    limit,
		Offset:   offset,
		Status:   status,
		Accounts: filter,
		OrderBy:  order,
		OrderAsc: c.Query("asc") == "1",
	}
	list, err := q.Find(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	total, err := q.Count(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "accounts": list})
}

// GetAccount fetches one account by id.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid account id"})
		return
	}
	account, err := h.accounts.GetAccount(h.db, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"msg": "account not found"})
		return
	}
	c.JSON(http.StatusOK, account)
}

type UpdateAccountReq struct {
	MediaCount        *int `json:"media_count"`
	CommentCount      *int `json:"comment_count"`
	SubscriptionCount *int `json:"subscription_count"`
}

// UpdateAccount runs one refresh cycle for the account.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid account id"})
		return
	}
	var req UpdateAccountReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	opt := service.UpdateOptions{
		MediaCount:        service.DepthAuto,
		CommentCount:      service.DepthAuto,
		SubscriptionCount: service.DepthAuto,
	}
	if req.MediaCount != nil {
		opt.MediaCount = *req.MediaCount
	}
	if req.CommentCount != nil {
		opt.CommentCount = *req.CommentCount
	}
	if req.SubscriptionCount != nil {
		opt.SubscriptionCount = *req.SubscriptionCount
	}
	if err := h.svc.UpdateAccount(c.Request.Context(), id, opt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// ListMedias lists medias matching the query parameters.
func (h *AccountHandler) ListMedias(c *gin.Context) {
	limit, ok1 := queryInt(c, "limit", 50)
	offset, ok2 := queryInt(c, "offset", 0)
	status, ok3 := queryStatus(c)
	filter, ok4 := accountFilter(c)
	order, ok5 := mediaOrders[c.Query("order")]
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	q := mysql.MediaQuery{
		Limit:    limit,
		Offset:   offset,
		Status:   status,
		Accounts: filter,
		OrderBy:  order,
		OrderAsc: c.Query("asc") == "1",
	}
	list, err := q.Find(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	total, err := q.Count(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "medias": list})
}

// GetMedia fetches one media by id.
func (h *AccountHandler) GetMedia(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid media id"})
		return
	}
	media, err := h.accounts.GetMedia(h.db, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	if media == nil {
		c.JSON(http.StatusNotFound, gin.H{"msg": "media not found"})
		return
	}
	c.JSON(http.StatusOK, media)
}

// ListComments lists comments matching the query parameters.
func (h *AccountHandler) ListComments(c *gin.Context) {
	limit, ok1 := queryInt(c, "limit", 50)
	offset, ok2 := queryInt(c, "offset", 0)
	status, ok3 := queryStatus(c)
	filter, ok4 := accountFilter(c)
	order, ok5 := commentOrders[c.Query("order")]
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	q := mysql.CommentQuery{
		Limit:    limit,
		Offset:   offset,
		Status:   status,
		Accounts: filter,
		OrderBy:  order,
		OrderAsc: c.Query("asc") == "1",
	}
	list, err := q.Find(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	total, err := q.Count(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "comments": list})
}

type AnalyzeReq struct {
	Platform string `json:"platform"`
	Query    string `json:"query"`
	Amount   int    `json:"amount"`
	Full     bool   `json:"full"`
}

// Analyze runs a platform search and seeds entities from the results.
func (h *AccountHandler) Analyze(c *gin.Context) {
	var req AnalyzeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if req.Platform == "" || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "platform and query are required"})
		return
	}
	accountIDs, mediaIDs, err := h.svc.Analyze(c.Request.Context(), req.Platform, req.Query, req.Amount, req.Full)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accountIDs, "medias": mediaIDs})
}
