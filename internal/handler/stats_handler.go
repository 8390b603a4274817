package handler

import (
	"net/http"

	"metrico/internal/repository/mysql"
	"metrico/internal/repository/redis"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StatsHandler struct {
	db       *gorm.DB
	accounts *mysql.AccountRepository
	cache    *redis.StatsCacheRepository // nil when redis is disabled
	log      *zap.Logger
}

func NewStatsHandler(db *gorm.DB, accounts *mysql.AccountRepository, cache *redis.StatsCacheRepository, log *zap.Logger) *StatsHandler {
	return &StatsHandler{db: db, accounts: accounts, cache: cache, log: log}
}

// Stats reports row counts per entity kind, served from the cache when warm.
func (h *StatsHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	if h.cache != nil {
		if stats, err := h.cache.Get(ctx); err != nil {
			h.log.Warn("stats cache read failed", zap.Error(err))
		} else if stats != nil {
			c.JSON(http.StatusOK, stats)
			return
		}
	}

	stats, err := h.accounts.Stats(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, stats); err != nil {
			h.log.Warn("stats cache write failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, stats)
}
