package controllers

import (
	"net/http"

	"github.com/bits-his/nibbes-api/config"
	"github.com/bits-his/nibbes-api/models"
	"github.com/bits-his/nibbes-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest represents the request body for recording a payment
type RecordPaymentRequest struct {
	Method string `json:"method" binding:"required"`
	Amount string `json:"amount" binding:"omitempty"`
	Status string `json:"status" binding:"omitempty,oneof=pending completed failed"`
}

// RecordPayment handles POST /api/v1/orders/:id/payment - records the
// one-to-one payment for an order (staff/manager). A completed payment
// marks the order paid; a failed one marks it failed.
func RecordPayment(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	// Amount defaults to the order total
	amount := order.TotalAmount
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil || parsed.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Amount must be a non-negative decimal string",
				},
			})
			return
		}
		amount = parsed.StringFixed(2)
	}

	status := req.Status
	if status == "" {
		status = models.PaymentRecordCompleted
	}

	payment := models.Payment{
		OrderID: order.ID,
		Amount:  amount,
		Method:  req.Method,
		Status:  status,
	}

	if err := db.Create(&payment).Error; err != nil {
		// One payment per order
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PAYMENT_EXISTS",
					"message": "A payment has already been recorded for this order",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to record payment",
			},
		})
		return
	}

	// Reflect the payment outcome on the order row
	paymentStatus := models.PaymentStatusPending
	switch status {
	case models.PaymentRecordCompleted:
		paymentStatus = models.PaymentStatusPaid
	case models.PaymentRecordFailed:
		paymentStatus = models.PaymentStatusFailed
	}

	updates := map[string]interface{}{
		"payment_status": paymentStatus,
		"payment_method": req.Method,
	}
	if err := db.Model(&order).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update order payment status",
			},
		})
		return
	}

	if err := db.First(&order, order.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load order details",
			},
		})
		return
	}

	publishOrderEvent(services.EventOrderUpdate, &order)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    payment,
	})
}

// GetPayment handles GET /api/v1/orders/:id/payment - fetches the payment
// recorded for an order
func GetPayment(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	var payment models.Payment
	if err := db.Where("order_id = ?", order.ID).First(&payment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_NOT_FOUND",
				"message": "No payment recorded for this order",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payment,
	})
}
