package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/market-history/backend/internal/database"
	"github.com/codyseavey/market-history/backend/internal/models"
)

type TransactionHandler struct{}

func NewTransactionHandler() *TransactionHandler {
	return &TransactionHandler{}
}

// GetTransactions serves the wallet ledger, newest first.
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	db := database.GetDB()

	query := db.Model(&models.AccountTransaction{}).Preload("Items")

	if txType := c.Query("type"); txType != "" {
		query = query.Where("type = ?", txType)
	}
	if isCredit := c.Query("is_credit"); isCredit != "" {
		v, err := strconv.ParseBool(isCredit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_credit must be a boolean"})
			return
		}
		query = query.Where("is_credit = ?", v)
	}

	start, _ := strconv.Atoi(c.DefaultQuery("start", "0"))
	count, _ := strconv.Atoi(c.DefaultQuery("count", "100"))
	if count <= 0 || count > maxPageCount {
		count = 100
	}
	if start < 0 {
		start = 0
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var transactions []models.AccountTransaction
	if err := query.Order("date DESC, id DESC").Offset(start).Limit(count).Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total_count":  total,
		"has_more":     int64(start+count) < total,
	})
}
