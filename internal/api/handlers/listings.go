package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/market-history/backend/internal/database"
	"github.com/codyseavey/market-history/backend/internal/models"
)

// Maximum page size served per request
const maxPageCount = 500

type ListingHandler struct{}

func NewListingHandler() *ListingHandler {
	return &ListingHandler{}
}

// GetListings serves the stored collection, newest first, with optional
// filters and offset pagination.
func (h *ListingHandler) GetListings(c *gin.Context) {
	db := database.GetDB()

	query := db.Model(&models.Listing{})

	if isCredit := c.Query("is_credit"); isCredit != "" {
		v, err := strconv.ParseBool(isCredit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_credit must be a boolean"})
			return
		}
		query = query.Where("is_credit = ?", v)
	}
	if appID := c.Query("appid"); appID != "" {
		query = query.Where("appid = ?", appID)
	}
	if name := c.Query("market_hash_name"); name != "" {
		query = query.Where("market_hash_name LIKE ?", "%"+name+"%")
	}
	if from := c.Query("index_from"); from != "" {
		if v, err := strconv.ParseInt(from, 10, 64); err == nil {
			query = query.Where("idx >= ?", v)
		}
	}
	if to := c.Query("index_to"); to != "" {
		if v, err := strconv.ParseInt(to, 10, 64); err == nil {
			query = query.Where("idx <= ?", v)
		}
	}
	if after := c.Query("after"); after != "" {
		if t, err := time.Parse("2006-01-02", after); err == nil {
			query = query.Where("date_acted >= ?", t)
		}
	}
	if before := c.Query("before"); before != "" {
		if t, err := time.Parse("2006-01-02", before); err == nil {
			query = query.Where("date_acted <= ?", t)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	start, _ := strconv.Atoi(c.DefaultQuery("start", "0"))
	count, _ := strconv.Atoi(c.DefaultQuery("count", "100"))
	if count <= 0 || count > maxPageCount {
		count = 100
	}
	if start < 0 {
		start = 0
	}

	var listings []models.Listing
	if err := query.Order("idx DESC").Offset(start).Limit(count).Find(&listings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ListingSearchResult{
		Listings:   listings,
		TotalCount: total,
		HasMore:    int64(start+count) < total,
	})
}

func (h *ListingHandler) GetListing(c *gin.Context) {
	db := database.GetDB()

	var listing models.Listing
	if err := db.First(&listing, "transaction_id = ?", c.Param("transaction_id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}
	c.JSON(http.StatusOK, listing)
}

// GetStats serves collection aggregates for the dashboard.
func (h *ListingHandler) GetStats(c *gin.Context) {
	db := database.GetDB()

	var stats models.ListingStats
	if err := db.Model(&models.Listing{}).Count(&stats.Count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type sums struct {
		Count int64
		Total int64
	}
	var credit, debit sums
	db.Model(&models.Listing{}).Select("COUNT(*) as count, COALESCE(SUM(price), 0) as total").
		Where("is_credit = ?", true).Scan(&credit)
	db.Model(&models.Listing{}).Select("COUNT(*) as count, COALESCE(SUM(price), 0) as total").
		Where("is_credit = ?", false).Scan(&debit)

	stats.CreditCount = credit.Count
	stats.CreditTotal = credit.Total
	stats.DebitCount = debit.Count
	stats.DebitTotal = debit.Total

	c.JSON(http.StatusOK, stats)
}
