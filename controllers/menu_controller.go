package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/bits-his/nibbes-api/config"
	"github.com/bits-his/nibbes-api/middleware"
	"github.com/bits-his/nibbes-api/models"
	"github.com/bits-his/nibbes-api/services"
	"github.com/bits-his/nibbes-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateMenuItemRequest represents the request body for adding a menu item
type CreateMenuItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Price       string  `json:"price" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Available   *bool   `json:"available"`
}

// UpdateMenuItemRequest represents the request body for editing a menu item
type UpdateMenuItemRequest struct {
	Name        string  `json:"name" binding:"omitempty"`
	Description *string `json:"description"`
	Price       string  `json:"price" binding:"omitempty"`
	Category    string  `json:"category" binding:"omitempty"`
	Available   *bool   `json:"available"`
}

// resolveImageURL fills in the presigned URL for a menu item's photo.
// A failure here is logged and leaves the URL empty rather than failing
// the menu fetch.
func resolveImageURL(item *models.MenuItem) {
	if item.ImageS3Key == nil || *item.ImageS3Key == "" {
		return
	}
	imageService := services.GetImageService()
	if imageService == nil {
		return
	}
	url, err := imageService.GetImageURL(*item.ImageS3Key)
	if err != nil {
		log.Printf("Failed to resolve image URL for menu item %d: %v", item.ID, err)
		return
	}
	if url != "" {
		item.ImageURL = &url
	}
}

// ListMenuItems handles GET /api/v1/menu - lists the menu (public).
// ?available=true restricts to items customers can currently order;
// ?category= filters by category.
func ListMenuItems(c *gin.Context) {
	db := config.GetDB()
	query := db.Model(&models.MenuItem{})

	if c.Query("available") == "true" {
		query = query.Where("available = ?", true)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var items []models.MenuItem
	if err := query.Order("category ASC, name ASC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch menu",
			},
		})
		return
	}

	for i := range items {
		resolveImageURL(&items[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
	})
}

// GetMenuItem handles GET /api/v1/menu/:id - fetches one menu item (public)
func GetMenuItem(c *gin.Context) {
	db := config.GetDB()

	var item models.MenuItem
	if err := db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	resolveImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// CreateMenuItem handles POST /api/v1/menu - adds a menu item (staff/manager)
func CreateMenuItem(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}

	var req CreateMenuItemRequest
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

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Price must be a non-negative decimal string",
			},
		})
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item := models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       price.StringFixed(2),
		Category:    req.Category,
		Available:   available,
	}

	db := config.GetDB()
	if err := db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create menu item",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// UpdateMenuItem handles PUT /api/v1/menu/:id - edits a menu item,
// including toggling availability (staff/manager)
func UpdateMenuItem(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}

	var req UpdateMenuItemRequest
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

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = req.Description
	}
	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Price must be a non-negative decimal string",
				},
			})
			return
		}
		updates["price"] = price.StringFixed(2)
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Available != nil {
		updates["available"] = *req.Available
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    item,
		})
		return
	}

	if err := db.Model(&item).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update menu item",
			},
		})
		return
	}

	if err := db.First(&item, item.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load menu item",
			},
		})
		return
	}

	resolveImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// DeleteMenuItem handles DELETE /api/v1/menu/:id - removes a menu item from
// the menu (manager only). Existing orders keep their price snapshots.
func DeleteMenuItem(c *gin.Context) {
	user, ok := requireStaff(c)
	if !ok {
		return
	}
	if user.Role != models.RoleManager {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only managers can delete menu items",
			},
		})
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	if err := db.Delete(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete menu item",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Menu item deleted",
	})
}

// UploadMenuItemImage handles POST /api/v1/menu/:id/image - uploads a photo
// for a menu item (staff/manager). The previous photo, if any, is removed
// from storage.
func UploadMenuItemImage(c *gin.Context) {
	if _, ok := requireStaff(c); !ok {
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "An image file is required",
			},
		})
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_UNAVAILABLE",
				"message": "Image storage is not configured",
			},
		})
		return
	}

	imageKey, err := imageService.UploadImage(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    uploadErr.Code,
					"message": uploadErr.Message,
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to upload image",
			},
		})
		return
	}

	oldKey := item.ImageS3Key
	if err := db.Model(&item).Update("image_s3_key", imageKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image reference",
			},
		})
		return
	}

	// Best-effort cleanup of the replaced photo
	if oldKey != nil && *oldKey != "" {
		if err := imageService.DeleteImage(*oldKey); err != nil {
			log.Printf("Failed to delete replaced menu image %s: %v", *oldKey, err)
		}
	}

	item.ImageS3Key = &imageKey
	resolveImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// requireStaff loads the current user and rejects the request unless the
// role can manage the menu and back-office workflows.
func requireStaff(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
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
		return nil, false
	}

	if !models.StaffRole(user.Role) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Staff access required",
			},
		})
		return nil, false
	}

	return &user, true
}
