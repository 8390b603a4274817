package router

import (
	"metrico/internal/handler"
	"metrico/internal/repository/mysql"
	"metrico/internal/repository/redis"
	"metrico/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB         *gorm.DB
	Accounts   *mysql.AccountRepository
	Triggers   *mysql.TriggerRepository
	Updates    *service.UpdateService
	TriggerSvc *service.TriggerService
	StatsCache *redis.StatsCacheRepository // nil when redis is disabled
	Log        *zap.Logger
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.Default()

	account := handler.NewAccountHandler(d.DB, d.Accounts, d.Updates)
	trigger := handler.NewTriggerHandler(d.DB, d.Triggers, d.TriggerSvc)
	stats := handler.NewStatsHandler(d.DB, d.Accounts, d.StatsCache, d.Log)

	accountGroup := r.Group("/api/account")
	{
		accountGroup.GET("", account.ListAccounts)
		accountGroup.GET("/:id", account.GetAccount)
		accountGroup.POST("/:id/update", account.UpdateAccount)
	}

	mediaGroup := r.Group("/api/media")
	{
		mediaGroup.GET("", account.ListMedias)
		mediaGroup.GET("/:id", account.GetMedia)
	}

	commentGroup := r.Group("/api/comment")
	{
		commentGroup.GET("", account.ListComments)
	}

	triggerGroup := r.Group("/api/trigger")
	{
		triggerGroup.GET("/:name", trigger.Status)
		triggerGroup.POST("/:name/enqueue", trigger.Enqueue)
		triggerGroup.POST("/:name/run", trigger.Run)
	}

	r.POST("/api/analyze", account.Analyze)
	r.GET("/api/stats", stats.Stats)

	return r
}
