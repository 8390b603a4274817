package handler

import (
	"net/http"

	"metrico/internal/repository/mysql"
	"metrico/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TriggerHandler struct {
	db       *gorm.DB
	triggers *mysql.TriggerRepository
	svc      *service.TriggerService
}

func NewTriggerHandler(db *gorm.DB, triggers *mysql.TriggerRepository, svc *service.TriggerService) *TriggerHandler {
	return &TriggerHandler{db: db, triggers: triggers, svc: svc}
}

type EnqueueReq struct {
	AccountID uint64 `json:"account_id"`
	MediaID   uint64 `json:"media_id"`
}

// Enqueue marks an entity for the trigger's next run.
func (h *TriggerHandler) Enqueue(c *gin.Context) {
	name := c.Param("name")
	var req EnqueueReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if req.AccountID == 0 && req.MediaID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "account_id or media_id is required"})
		return
	}
	if err := h.svc.Enqueue(c.Request.Context(), name, req.AccountID, req.MediaID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trigger": name})
}

// Run executes the named trigger once, synchronously.
func (h *TriggerHandler) Run(c *gin.Context) {
	name := c.Param("name")
	if err := h.svc.Run(c.Request.Context(), name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trigger": name})
}

// Status reports the trigger's state and queue depth.
func (h *TriggerHandler) Status(c *gin.Context) {
	name := c.Param("name")
	err := h.db.Transaction(func(tx *gorm.DB) error {
		trigger, err := h.triggers.GetOrCreateTrigger(tx, name)
		if err != nil {
			return err
		}
		accounts, medias, err := h.triggers.Queued(tx, name)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{
			"trigger":         name,
			"status":          trigger.Status.String(),
			"queued_accounts": accounts,
			"queued_medias":   medias,
		})
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
	}
}
