package controllers

import (
	"net/http"
	"strings"

	"github.com/bits-his/nibbes-api/config"
	"github.com/bits-his/nibbes-api/middleware"
	"github.com/bits-his/nibbes-api/models"
	"github.com/bits-his/nibbes-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OrderItemRequest represents one line item in an order creation request
type OrderItemRequest struct {
	MenuItemID          uint   `json:"menu_item_id" binding:"required"`
	Quantity            int    `json:"quantity" binding:"required,gt=0"`
	SpecialInstructions string `json:"special_instructions"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name" binding:"required"`
	CustomerPhone string             `json:"customer_phone"`
	OrderType     string             `json:"order_type" binding:"omitempty,oneof=online walk-in dine-in"`
	PaymentMethod string             `json:"payment_method"`
	Notes         string             `json:"notes"`
	Items         []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderStatusRequest represents the request body for a status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// publishOrderEvent notifies connected real-time clients of a change.
// Delivery failures never fail the triggering mutation; if the broadcaster
// is not running, clients fall back to polling.
// isUniqueViolation reports whether err is a unique-index conflict
// (works with both PostgreSQL and SQLite)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}

func publishOrderEvent(eventType string, order *models.Order) {
	if broadcaster := services.GetBroadcastService(); broadcaster != nil {
		broadcaster.Publish(eventType, order)
	}
}

// CreateOrder handles POST /api/v1/orders - places a new order.
// Online orders can be placed by any authenticated user; walk-in and
// dine-in orders are entered by staff.
func CreateOrder(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	// Find the user in the database
	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		return
	}

	// Parse request body
	var req CreateOrderRequest
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

	orderType := req.OrderType
	if orderType == "" {
		orderType = models.OrderTypeOnline
	}

	// Walk-in and dine-in orders are entered from the back office
	if orderType != models.OrderTypeOnline && !models.StaffRole(user.Role) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only staff can enter walk-in or dine-in orders",
			},
		})
		return
	}

	// Build the line items, snapshotting current menu prices
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		var menuItem models.MenuItem
		if err := db.First(&menuItem, itemReq.MenuItemID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MENU_ITEM_NOT_FOUND",
					"message": "One or more menu items do not exist",
				},
			})
			return
		}

		if !menuItem.Available {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": menuItem.Name + " is currently unavailable",
				},
			})
			return
		}

		items = append(items, models.OrderItem{
			MenuItemID:          menuItem.ID,
			Quantity:            itemReq.Quantity,
			Price:               menuItem.Price,
			SpecialInstructions: itemReq.SpecialInstructions,
		})
	}

	totalAmount, err := models.ComputeOrderTotal(items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to compute order total",
			},
		})
		return
	}

	// Write the order and its items in one transaction so the rows land
	// together or not at all. The order number is assigned inside the same
	// transaction from the current maximum.
	order := models.Order{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		OrderType:     orderType,
		Status:        models.OrderStatusPending,
		TotalAmount:   totalAmount,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Items:         items,
	}

	// Two concurrent creates can read the same MAX(order_number); the loser
	// hits the unique index, so retry the assignment once with a fresh read.
	var txErr error
	for attempt := 0; attempt < 2; attempt++ {
		txErr = db.Transaction(func(tx *gorm.DB) error {
			var maxNumber int
			if err := tx.Model(&models.Order{}).Unscoped().
				Select("COALESCE(MAX(order_number), 0)").Scan(&maxNumber).Error; err != nil {
				return err
			}
			order.OrderNumber = maxNumber + 1

			return tx.Create(&order).Error
		})
		if txErr == nil || !isUniqueViolation(txErr) {
			break
		}
	}
	if txErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create order",
			},
		})
		return
	}

	// Load the items relationship to return complete data
	if err := db.Preload("Items").First(&order, order.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load order details",
			},
		})
		return
	}

	// Notify connected clients after the write is durable, before responding
	publishOrderEvent(services.EventNewOrder, &order)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists orders, newest first.
// Supports ?status= to filter by a single status and ?active=true for the
// non-terminal orders shown on the kitchen display; the latter is also the
// polling fallback for clients whose real-time channel is down.
func ListOrders(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		return
	}

	query := db.Model(&models.Order{}).Preload("Items")

	if status := c.Query("status"); status != "" {
		if !models.ValidOrderStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Unknown order status: " + status,
				},
			})
			return
		}
		query = query.Where("status = ?", status)
	}

	if c.Query("active") == "true" {
		query = query.Where("status IN ?", models.ActiveOrderStatuses())
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id - fetches a single order with items
func GetOrder(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		return
	}

	var order models.Order
	if err := db.Preload("Items.MenuItem").First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status - moves an
// order through its lifecycle. Any transition between enumerated statuses
// is accepted; there is no compare-and-swap, so concurrent writers race and
// the last write wins.
func UpdateOrderStatus(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		return
	}

	// Customers don't move orders through the kitchen
	if user.Role == models.RoleCustomer {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only staff can update order status",
			},
		})
		return
	}

	var req UpdateOrderStatusRequest
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

	if !models.ValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Unknown order status: " + req.Status,
			},
		})
		return
	}

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

	// Update bumps updated_at alongside the status
	if err := db.Model(&order).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update order status",
			},
		})
		return
	}

	if err := db.Preload("Items").First(&order, order.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load order details",
			},
		})
		return
	}

	// Broadcast after the durable write, before responding to the caller
	publishOrderEvent(services.EventOrderUpdate, &order)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}
