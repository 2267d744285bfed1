package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bits-his/nibbes-api/config"
	"github.com/bits-his/nibbes-api/controllers"
	"github.com/bits-his/nibbes-api/models"
	"github.com/bits-his/nibbes-api/services"
	"github.com/bits-his/nibbes-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MenuImageIntegrationTestSuite exercises menu item photo upload against the
// mock image service and checks that resolved URLs show up on the public menu
type MenuImageIntegrationTestSuite struct {
	suite.Suite
	db           *gorm.DB
	router       *gin.Engine
	imageService *services.MockImageService
}

// SetupSuite runs once before all tests
func (suite *MenuImageIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(suite.T())
}

// SetupTest runs before each test
func (suite *MenuImageIntegrationTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.NoError(err)
	suite.db = db

	err = db.AutoMigrate(&models.User{}, &models.MenuItem{})
	suite.NoError(err)

	config.SetDB(db)

	suite.imageService = services.NewMockImageService()
	suite.imageService.SetAsMockForTesting()

	manager := models.User{Auth0ID: "auth0|manager", Name: "Bisi Ade", Email: "bisi@example.com", Role: models.RoleManager}
	customer := models.User{Auth0ID: "auth0|customer", Name: "Ada Obi", Email: "ada@example.com", Role: models.RoleCustomer}
	suite.NoError(suite.db.Create(&manager).Error)
	suite.NoError(suite.db.Create(&customer).Error)

	suite.router = gin.New()
	suite.router.Use(gin.Recovery())

	v1 := suite.router.Group("/api/v1")
	{
		v1.GET("/menu", controllers.ListMenuItems)
		v1.GET("/menu/:id", controllers.GetMenuItem)
		v1.POST("/menu/:id/image", testutil.MockAuthMiddleware("auth0|manager", models.RoleManager), controllers.UploadMenuItemImage)
		v1.POST("/menu-customer/:id/image", testutil.MockAuthMiddleware("auth0|customer", models.RoleCustomer), controllers.UploadMenuItemImage)
	}
}

// TearDownTest runs after each test
func (suite *MenuImageIntegrationTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}


func (suite *MenuImageIntegrationTestSuite) createMenuItem() models.MenuItem {
	item := models.MenuItem{Name: "Jollof Rice", Price: "1000.00", Category: "mains", Available: true}
	suite.NoError(suite.db.Create(&item).Error)
	return item
}

func (suite *MenuImageIntegrationTestSuite) uploadImage(path, filename string, content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		suite.NoError(err)
		part.Write(content)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// TestUploadImage_AppearsOnPublicMenu uploads a photo and checks the public
// menu now carries a resolvable image URL
func (suite *MenuImageIntegrationTestSuite) TestUploadImage_AppearsOnPublicMenu() {
	item := suite.createMenuItem()

	w := suite.uploadImage(fmt.Sprintf("/api/v1/menu/%d/image", item.ID), "jollof.png", []byte("fake png content"))
	suite.Equal(http.StatusOK, w.Code, "Response body: %s", w.Body.String())

	var uploadResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &uploadResponse))
	suite.True(uploadResponse["success"].(bool))

	// The stored S3 key is internal; the public menu exposes a resolved URL
	var stored models.MenuItem
	suite.NoError(suite.db.First(&stored, item.ID).Error)
	suite.NotNil(stored.ImageS3Key)
	suite.True(suite.imageService.ImageExists(*stored.ImageS3Key))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/menu/%d", item.ID), nil)
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)

	var getResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &getResponse))
	menuItem := getResponse["data"].(map[string]interface{})
	imageURL, ok := menuItem["image_url"].(string)
	suite.True(ok, "image_url should be set after upload")
	suite.NotEmpty(imageURL)
}

// TestUploadImage_ReplacesPrevious uploads twice and checks the item points
// at the newest image
func (suite *MenuImageIntegrationTestSuite) TestUploadImage_ReplacesPrevious() {
	item := suite.createMenuItem()

	w := suite.uploadImage(fmt.Sprintf("/api/v1/menu/%d/image", item.ID), "first.png", []byte("first"))
	suite.Equal(http.StatusOK, w.Code)

	var stored models.MenuItem
	suite.NoError(suite.db.First(&stored, item.ID).Error)
	firstKey := *stored.ImageS3Key

	w = suite.uploadImage(fmt.Sprintf("/api/v1/menu/%d/image", item.ID), "second.png", []byte("second"))
	suite.Equal(http.StatusOK, w.Code)

	suite.NoError(suite.db.First(&stored, item.ID).Error)
	suite.NotEqual(firstKey, *stored.ImageS3Key)
}

// TestUploadImage_Validation covers rejected uploads
func (suite *MenuImageIntegrationTestSuite) TestUploadImage_Validation() {
	item := suite.createMenuItem()

	testCases := []struct {
		name           string
		path           string
		filename       string
		content        []byte
		expectedStatus int
	}{
		{
			name:           "Unsupported format",
			path:           fmt.Sprintf("/api/v1/menu/%d/image", item.ID),
			filename:       "animation.gif",
			content:        []byte("GIF89a"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing file",
			path:           fmt.Sprintf("/api/v1/menu/%d/image", item.ID),
			filename:       "",
			content:        nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Unknown menu item",
			path:           "/api/v1/menu/999999/image",
			filename:       "jollof.png",
			content:        []byte("fake png content"),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Customer may not upload",
			path:           fmt.Sprintf("/api/v1/menu-customer/%d/image", item.ID),
			filename:       "jollof.png",
			content:        []byte("fake png content"),
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			w := suite.uploadImage(tc.path, tc.filename, tc.content)
			assert.Equal(t, tc.expectedStatus, w.Code, "Response body: %s", w.Body.String())
		})
	}
}

// TestRunSuite runs the test suite
func TestMenuImageIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(MenuImageIntegrationTestSuite))
}
