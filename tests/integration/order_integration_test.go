package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
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

// OrderIntegrationTestSuite exercises the order endpoints end to end against
// an in-memory database, from placement through kitchen updates to payment.
type OrderIntegrationTestSuite struct {
	suite.Suite
	router      *gin.Engine
	db          *gorm.DB
	broadcaster *services.BroadcastService
	cfg         *config.Config
	menuItems   []models.MenuItem
}

// SetupSuite runs once before all tests
func (suite *OrderIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	testutil.MustSetTestEnvironment(suite.T())
	os.Setenv("AUTH0_DOMAIN", "test.auth0.com")
	os.Setenv("AUTH0_AUDIENCE", "https://api.test.com")
	os.Setenv("PORT", "8080")

	cfg, err := config.Load()
	suite.NoError(err)
	suite.cfg = cfg
}

// SetupTest runs before each test
func (suite *OrderIntegrationTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.NoError(err)
	suite.db = db

	err = db.AutoMigrate(
		&models.User{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	suite.NoError(err)

	config.SetDB(db)

	suite.broadcaster = services.NewBroadcastService()
	services.SetBroadcastService(suite.broadcaster)

	suite.seedUsers()
	suite.seedMenu()

	// Routes are mounted once per role so each actor in a scenario goes
	// through its own authenticated path
	suite.router = gin.New()
	suite.router.Use(gin.Recovery())

	v1 := suite.router.Group("/api/v1")
	{
		v1.POST("/orders", testutil.MockAuthMiddleware("auth0|customer", models.RoleCustomer), controllers.CreateOrder)
		v1.GET("/orders/:id", testutil.MockAuthMiddleware("auth0|customer", models.RoleCustomer), controllers.GetOrder)

		v1.POST("/orders-staff", testutil.MockAuthMiddleware("auth0|staff", models.RoleStaff), controllers.CreateOrder)
		v1.GET("/orders-staff", testutil.MockAuthMiddleware("auth0|staff", models.RoleStaff), controllers.ListOrders)
		v1.POST("/orders-staff/:id/payment", testutil.MockAuthMiddleware("auth0|staff", models.RoleStaff), controllers.RecordPayment)

		v1.PATCH("/orders-kitchen/:id/status", testutil.MockAuthMiddleware("auth0|kitchen", models.RoleKitchen), controllers.UpdateOrderStatus)
	}
}

// TearDownTest runs after each test
func (suite *OrderIntegrationTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (suite *OrderIntegrationTestSuite) seedUsers() {
	users := []models.User{
		{Auth0ID: "auth0|customer", Name: "Ada Obi", Email: "ada@example.com", Role: models.RoleCustomer},
		{Auth0ID: "auth0|staff", Name: "Front Desk", Email: "staff@example.com", Role: models.RoleStaff},
		{Auth0ID: "auth0|kitchen", Name: "Chef Musa", Email: "chef@example.com", Role: models.RoleKitchen},
	}
	for i := range users {
		suite.NoError(suite.db.Create(&users[i]).Error)
	}
}

func (suite *OrderIntegrationTestSuite) seedMenu() {
	suite.menuItems = []models.MenuItem{
		{Name: "Jollof Rice", Price: "1000.00", Category: "mains", Available: true},
		{Name: "Chapman", Price: "500.00", Category: "drinks", Available: true},
	}
	for i := range suite.menuItems {
		suite.NoError(suite.db.Create(&suite.menuItems[i]).Error)
	}
}


func (suite *OrderIntegrationTestSuite) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderIntegrationTestSuite) patchJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderIntegrationTestSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// TestOrderWorkflow walks an online order from placement through the kitchen
// to a recorded payment, checking the broadcast stream along the way
func (suite *OrderIntegrationTestSuite) TestOrderWorkflow() {
	sub := suite.broadcaster.Subscribe()
	defer suite.broadcaster.Unsubscribe(sub)

	// Customer places an order
	w := suite.postJSON("/api/v1/orders", map[string]interface{}{
		"customer_name":  "Ada Obi",
		"customer_phone": "+2348012345678",
		"order_type":     "online",
		"items": []map[string]interface{}{
			{"menu_item_id": suite.menuItems[0].ID, "quantity": 2},
			{"menu_item_id": suite.menuItems[1].ID, "quantity": 1},
		},
	})
	suite.Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())

	var createResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &createResponse))
	orderData := createResponse["data"].(map[string]interface{})
	orderID := int(orderData["id"].(float64))
	suite.Equal("2500.00", orderData["total_amount"])
	suite.Equal("pending", orderData["status"])
	suite.Equal(float64(1), orderData["order_number"])

	event := <-sub.Events
	suite.Equal(services.EventNewOrder, event.Type)
	suite.Equal("pending", event.Status)

	// Kitchen takes it through preparing and ready
	for _, status := range []string{"preparing", "ready"} {
		w = suite.patchJSON(fmt.Sprintf("/api/v1/orders-kitchen/%d/status", orderID),
			map[string]interface{}{"status": status})
		suite.Equal(http.StatusOK, w.Code, "Response body: %s", w.Body.String())

		event = <-sub.Events
		suite.Equal(services.EventOrderUpdate, event.Type)
		suite.Equal(status, event.Status)
	}

	// Front desk records the payment
	w = suite.postJSON(fmt.Sprintf("/api/v1/orders-staff/%d/payment", orderID),
		map[string]interface{}{"method": "cash"})
	suite.Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())

	event = <-sub.Events
	suite.Equal(services.EventOrderUpdate, event.Type)

	// Customer checks the final state
	w = suite.get(fmt.Sprintf("/api/v1/orders/%d", orderID))
	suite.Equal(http.StatusOK, w.Code)

	var getResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &getResponse))
	finalOrder := getResponse["data"].(map[string]interface{})
	suite.Equal("ready", finalOrder["status"])
	suite.Equal("paid", finalOrder["payment_status"])
	suite.Equal("cash", finalOrder["payment_method"])

	items := finalOrder["items"].([]interface{})
	suite.Len(items, 2)
}

// TestWalkInOrder verifies staff can place walk-in orders while customers
// cannot
func (suite *OrderIntegrationTestSuite) TestWalkInOrder() {
	body := map[string]interface{}{
		"customer_name": "Walk-in Guest",
		"order_type":    "walk-in",
		"items": []map[string]interface{}{
			{"menu_item_id": suite.menuItems[0].ID, "quantity": 1},
		},
	}

	w := suite.postJSON("/api/v1/orders", body)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.postJSON("/api/v1/orders-staff", body)
	assert.Equal(suite.T(), http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
}

// TestListOrders_StatusAndActiveFilters covers the polling endpoints the
// kitchen dashboard falls back to without a WebSocket connection
func (suite *OrderIntegrationTestSuite) TestListOrders_StatusAndActiveFilters() {
	statuses := []string{"pending", "preparing", "completed", "cancelled"}
	for i, status := range statuses {
		order := models.Order{
			OrderNumber:  i + 1,
			CustomerName: "Ada Obi",
			OrderType:    models.OrderTypeOnline,
			Status:       status,
			TotalAmount:  "1000.00",
		}
		suite.NoError(suite.db.Create(&order).Error)
	}

	w := suite.get("/api/v1/orders-staff?status=pending")
	suite.Equal(http.StatusOK, w.Code)
	var response map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Len(response["data"].([]interface{}), 1)

	w = suite.get("/api/v1/orders-staff?active=true")
	suite.Equal(http.StatusOK, w.Code)
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Len(response["data"].([]interface{}), 2)

	w = suite.get("/api/v1/orders-staff?status=burnt")
	suite.Equal(http.StatusBadRequest, w.Code)
}

// TestCreateOrder_SnapshotsPrices verifies a menu price change after ordering
// does not affect the stored order
func (suite *OrderIntegrationTestSuite) TestCreateOrder_SnapshotsPrices() {
	w := suite.postJSON("/api/v1/orders", map[string]interface{}{
		"customer_name": "Ada Obi",
		"order_type":    "online",
		"items": []map[string]interface{}{
			{"menu_item_id": suite.menuItems[0].ID, "quantity": 1},
		},
	})
	suite.Equal(http.StatusCreated, w.Code)

	var createResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &createResponse))
	orderID := int(createResponse["data"].(map[string]interface{})["id"].(float64))

	suite.NoError(suite.db.Model(&models.MenuItem{}).
		Where("id = ?", suite.menuItems[0].ID).
		Update("price", "9999.00").Error)

	w = suite.get(fmt.Sprintf("/api/v1/orders/%d", orderID))
	suite.Equal(http.StatusOK, w.Code)

	var getResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &getResponse))
	order := getResponse["data"].(map[string]interface{})
	suite.Equal("1000.00", order["total_amount"])
	items := order["items"].([]interface{})
	suite.Equal("1000.00", items[0].(map[string]interface{})["price"])
}

// TestRunSuite runs the test suite
func TestOrderIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderIntegrationTestSuite))
}
