package controllers

import (
	"net/http"
	"time"

	"github.com/bits-his/nibbes-api/config"
	"github.com/bits-his/nibbes-api/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StatusSummary is one row of the sales report
type StatusSummary struct {
	Status  string `json:"status"`
	Orders  int    `json:"orders"`
	Revenue string `json:"revenue"`
}

// GetSalesReport handles GET /api/v1/reports/sales - order counts and
// revenue grouped by status (manager only). ?from= and ?to= take
// YYYY-MM-DD dates; omitted bounds are open.
func GetSalesReport(c *gin.Context) {
	user, ok := requireStaff(c)
	if !ok {
		return
	}
	if user.Role != models.RoleManager {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only managers can view sales reports",
			},
		})
		return
	}

	db := config.GetDB()
	query := db.Model(&models.Order{})

	if from := c.Query("from"); from != "" {
		fromTime, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "from must be a YYYY-MM-DD date",
				},
			})
			return
		}
		query = query.Where("created_at >= ?", fromTime)
	}

	if to := c.Query("to"); to != "" {
		toTime, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "to must be a YYYY-MM-DD date",
				},
			})
			return
		}
		// Inclusive end date
		query = query.Where("created_at < ?", toTime.AddDate(0, 0, 1))
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch orders",
			},
		})
		return
	}

	// Aggregate in decimal so money stays exact
	counts := make(map[string]int)
	revenues := make(map[string]decimal.Decimal)
	grossRevenue := decimal.Zero

	for _, order := range orders {
		total, err := decimal.NewFromString(order.TotalAmount)
		if err != nil {
			continue
		}
		counts[order.Status]++
		revenues[order.Status] = revenues[order.Status].Add(total)
		if order.Status == models.OrderStatusCompleted {
			grossRevenue = grossRevenue.Add(total)
		}
	}

	byStatus := make([]StatusSummary, 0, len(counts))
	for _, status := range []string{
		models.OrderStatusPending, models.OrderStatusPreparing,
		models.OrderStatusReady, models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	} {
		if counts[status] == 0 {
			continue
		}
		byStatus = append(byStatus, StatusSummary{
			Status:  status,
			Orders:  counts[status],
			Revenue: revenues[status].StringFixed(2),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"by_status":     byStatus,
			"total_orders":  len(orders),
			"gross_revenue": grossRevenue.StringFixed(2),
		},
	})
}
