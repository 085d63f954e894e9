package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	attendancedomain "github.com/digiget/digiget/internal/attendance/domain"
	attendanceservice "github.com/digiget/digiget/internal/attendance/service"
	"github.com/digiget/digiget/internal/audit"
	authdomain "github.com/digiget/digiget/internal/auth/domain"
	authservice "github.com/digiget/digiget/internal/auth/service"
	"github.com/digiget/digiget/internal/auth/session"
	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/cooldown"
	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	customerrepo "github.com/digiget/digiget/internal/customer/repository"
	customerservice "github.com/digiget/digiget/internal/customer/service"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	employeerepo "github.com/digiget/digiget/internal/employee/repository"
	employeeservice "github.com/digiget/digiget/internal/employee/service"
	"github.com/digiget/digiget/internal/geo"
	ledgerdomain "github.com/digiget/digiget/internal/ledger/domain"
	ledgerservice "github.com/digiget/digiget/internal/ledger/service"
	"github.com/digiget/digiget/internal/liveevents"
	loyaltydomain "github.com/digiget/digiget/internal/loyalty/domain"
	loyaltyservice "github.com/digiget/digiget/internal/loyalty/service"
	offerdomain "github.com/digiget/digiget/internal/offer/domain"
	offerservice "github.com/digiget/digiget/internal/offer/service"
	"github.com/digiget/digiget/internal/payroll"
	ratingdomain "github.com/digiget/digiget/internal/rating/domain"
	ratingservice "github.com/digiget/digiget/internal/rating/service"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
	shoprepo "github.com/digiget/digiget/internal/shop/repository"
	shopservice "github.com/digiget/digiget/internal/shop/service"
)

const (
	siteLat = 53.4808
	siteLng = -2.2426
)

type env struct {
	srv  *Server
	db   *gorm.DB
	fake *clock.FakeClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&shopdomain.Shop{},
		&customerdomain.Customer{},
		&employeedomain.Employee{},
		&ledgerdomain.Entry{},
		&loyaltydomain.Visit{},
		&attendancedomain.ClockEntry{},
		&cooldown.Relaxation{},
		&ratingdomain.Rating{},
		&offerdomain.Offer{},
		&audit.Log{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	cfg := &config.Config{
		SessionTTLHours:           24,
		CustomerRadiusMeters:      200,
		PointCooldownMinutes:      30,
		RedemptionCooldownMinutes: 1440,
		RatingEditCooldownMinutes: 60,
		PINValidityDays:           90,
	}
	log := zap.NewNop()
	rec := audit.NewRecorder(node, log)

	authsvc := authservice.New(authservice.Params{
		DB: db, GenID: node, Clock: fake, Config: cfg, Log: log,
	})
	shops := shopservice.New(shopservice.Params{
		DB: db, Repo: shoprepo.Provide(), GenID: node, Clock: fake, Config: cfg, Log: log,
	})
	ledger := ledgerservice.New(ledgerservice.Params{Log: log, GenID: node})
	customers := customerservice.New(customerservice.Params{
		DB: db, Log: log, GenID: node, Repo: customerrepo.Provide(), LedgerSvc: ledger,
	})
	employees := employeeservice.New(employeeservice.Params{
		DB: db, Repo: employeerepo.Provide(), GenID: node, Clock: fake, Config: cfg, Log: log,
	})
	relaxations := cooldown.NewStore()
	hub := liveevents.NewHub()
	loyalty := loyaltyservice.New(loyaltyservice.Params{
		DB: db, Customers: customerrepo.Provide(), Ledger: ledger, Shops: shops,
		Relaxations: relaxations, Audit: rec, GenID: node, Clock: fake,
		Config: cfg, Log: log, Hub: hub,
	})
	attendance := attendanceservice.New(attendanceservice.Params{
		DB: db, Employees: employees, Shops: shops, Audit: rec,
		GenID: node, Clock: fake, Log: log,
	})
	ratings := ratingservice.New(ratingservice.Params{
		DB: db, Relaxations: relaxations, GenID: node, Clock: fake, Config: cfg, Log: log,
	})
	offers := offerservice.New(offerservice.Params{DB: db, GenID: node, Clock: fake, Log: log})
	payrollSvc := payroll.New(payroll.Params{DB: db, Employees: employees, Log: log})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:           engine,
		Cfg:           cfg,
		DB:            db,
		GenID:         node,
		Sessions:      session.NewManager(cfg),
		Authsvc:       authsvc,
		ShopSvc:       shops,
		CustomerSvc:   customers,
		EmployeeSvc:   employees,
		LoyaltySvc:    loyalty,
		AttendanceSvc: attendance,
		LedgerSvc:     ledger,
		RatingSvc:     ratings,
		OfferSvc:      offers,
		PayrollSvc:    payrollSvc,
		AuditRec:      rec,
		Hub:           hub,
	})
	registerRoutes(srv)

	return &env{srv: srv, db: db, fake: fake}
}

type request struct {
	method string
	path   string
	body   any
	cookie *http.Cookie
	shopID snowflake.ID
}

func (e *env) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if req.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(req.body))
	}
	httpReq := httptest.NewRequest(req.method, req.path, &body)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.cookie != nil {
		httpReq.AddCookie(req.cookie)
	}
	if req.shopID != 0 {
		httpReq.Header.Set(HeaderShop, fmt.Sprintf("%d", req.shopID))
	}
	w := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(w, httpReq)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// signup registers an owner and returns the session cookie.
func (e *env) signup(t *testing.T, email string) *http.Cookie {
	t.Helper()
	w := e.do(t, request{method: http.MethodPost, path: "/auth/register", body: gin.H{
		"email":        email,
		"password":     "correct-horse-battery",
		"display_name": "Sam",
	}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, request{method: http.MethodPost, path: "/auth/login", body: gin.H{
		"email":    email,
		"password": "correct-horse-battery",
	}})
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == session.DefaultCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set on login")
	return nil
}

func (e *env) createShop(t *testing.T, cookie *http.Cookie) *shopdomain.Shop {
	t.Helper()
	w := e.do(t, request{method: http.MethodPost, path: "/api/shops", cookie: cookie, body: gin.H{
		"name":                   "Market Street Barbers",
		"latitude":               siteLat,
		"longitude":              siteLng,
		"radius_meters":          50,
		"customer_radius_meters": 200,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var shop shopdomain.Shop
	decode(t, w, &shop)
	require.NotZero(t, shop.ID)
	return &shop
}

func nearFix(capturedAt time.Time) *geo.Fix {
	// ~20m from the site.
	return &geo.Fix{
		Coordinate:     geo.Coordinate{Latitude: siteLat, Longitude: -2.2429},
		AccuracyMeters: 15,
		CapturedAt:     capturedAt,
	}
}

func farFix(capturedAt time.Time) *geo.Fix {
	// ~222m from the site.
	return &geo.Fix{
		Coordinate:     geo.Coordinate{Latitude: 53.4828, Longitude: siteLng},
		AccuracyMeters: 15,
		CapturedAt:     capturedAt,
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	e := newEnv(t)
	cookie := e.signup(t, "owner@market.st")

	w := e.do(t, request{method: http.MethodGet, path: "/auth/me", cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)

	var user authdomain.User
	decode(t, w, &user)
	assert.Equal(t, "owner@market.st", user.Email)
	assert.Empty(t, user.PasswordHash)
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "owner@market.st")

	w := e.do(t, request{method: http.MethodPost, path: "/auth/login", body: gin.H{
		"email":    "owner@market.st",
		"password": "not-it",
	}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, "unauthorized", resp.Error.Type)
}

func TestAuthRequiredWithoutCookie(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, request{method: http.MethodGet, path: "/api/shops"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShopContextRejectsForeignShop(t *testing.T) {
	e := newEnv(t)
	ownerA := e.signup(t, "a@market.st")
	shop := e.createShop(t, ownerA)
	ownerB := e.signup(t, "b@market.st")

	w := e.do(t, request{method: http.MethodGet, path: "/api/shop", cookie: ownerB, shopID: shop.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, request{method: http.MethodGet, path: "/api/shop", cookie: ownerA, shopID: shop.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var got shopdomain.Shop
	decode(t, w, &got)
	assert.Equal(t, shop.ID, got.ID)
}

func TestCustomerCheckInFlow(t *testing.T) {
	e := newEnv(t)
	owner := e.signup(t, "owner@market.st")
	e.createShop(t, owner)

	path := "/public/shops/market-street-barbers/checkin"
	w := e.do(t, request{method: http.MethodPost, path: path, body: gin.H{
		"phone":        "07700 900123",
		"name":         "Priya",
		"operation_id": "op-1",
		"fix":          nearFix(e.fake.Now()),
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result loyaltydomain.CheckInResult
	decode(t, w, &result)
	assert.Equal(t, loyaltydomain.VisitApproved, result.Status)
	assert.EqualValues(t, 1, result.NewBalance)

	// Same operation id replayed changes nothing.
	w = e.do(t, request{method: http.MethodPost, path: path, body: gin.H{
		"phone":        "07700 900123",
		"operation_id": "op-1",
		"fix":          nearFix(e.fake.Now()),
	}})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.True(t, result.Duplicate)
	assert.EqualValues(t, 1, result.NewBalance)

	// A fresh attempt inside the cooldown window is rejected with the
	// remaining wait.
	e.fake.Advance(5 * time.Minute)
	w = e.do(t, request{method: http.MethodPost, path: path, body: gin.H{
		"phone":        "07700 900123",
		"operation_id": "op-2",
		"fix":          nearFix(e.fake.Now()),
	}})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp errorResponse
	decode(t, w, &resp)
	assert.Equal(t, "cooldown_active", resp.Error.Type)
	assert.Equal(t, 25, resp.Error.RetryAfterMinutes)

	w = e.do(t, request{method: http.MethodGet, path: "/public/shops/market-street-barbers/balance?phone=%2B447700900123"})
	require.Equal(t, http.StatusOK, w.Code)

	var balance struct {
		Name          string `json:"name"`
		CurrentPoints int64  `json:"current_points"`
		TotalVisits   int64  `json:"total_visits"`
	}
	decode(t, w, &balance)
	assert.Equal(t, "Priya", balance.Name)
	assert.EqualValues(t, 1, balance.CurrentPoints)
	assert.EqualValues(t, 1, balance.TotalVisits)
}

func TestPublicShopUnknownSlug(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, request{method: http.MethodGet, path: "/public/shops/nowhere/offers"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStaffClockInAndShiftApproval(t *testing.T) {
	e := newEnv(t)
	owner := e.signup(t, "owner@market.st")
	shop := e.createShop(t, owner)

	w := e.do(t, request{method: http.MethodPost, path: "/api/employees", cookie: owner, shopID: shop.ID, body: gin.H{
		"name":        "Jordan",
		"email":       "jordan@market.st",
		"hourly_rate": 12.21,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created employeedomain.Created
	decode(t, w, &created)
	require.NotNil(t, created.Employee)
	require.Len(t, created.PIN, 4)

	// Out of the staff radius, so the entry lands pending for review.
	clockPath := "/public/shops/market-street-barbers/clock-in"
	w = e.do(t, request{method: http.MethodPost, path: clockPath, body: gin.H{
		"employee_id":  created.Employee.ID.String(),
		"pin":          created.PIN,
		"operation_id": "shift-1",
		"fix":          farFix(e.fake.Now()),
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var clockIn attendancedomain.ClockInResult
	decode(t, w, &clockIn)
	assert.Equal(t, attendancedomain.StatusPending, clockIn.Status)
	assert.Greater(t, clockIn.DistanceMeters, 50.0)

	e.fake.Advance(8 * time.Hour)
	w = e.do(t, request{method: http.MethodPost, path: "/public/shops/market-street-barbers/clock-out", body: gin.H{
		"employee_id": created.Employee.ID.String(),
		"pin":         created.PIN,
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	listPath := fmt.Sprintf("/api/shifts?employee_id=%s&from=2026-03-01&to=2026-03-09", created.Employee.ID)
	w = e.do(t, request{method: http.MethodGet, path: listPath, cookie: owner, shopID: shop.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var shifts struct {
		Entries []attendancedomain.ClockEntry `json:"entries"`
	}
	decode(t, w, &shifts)
	require.Len(t, shifts.Entries, 1)
	require.NotNil(t, shifts.Entries[0].ClockOutAt)

	w = e.do(t, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/api/shifts/%d/approve", shifts.Entries[0].ID),
		cookie: owner,
		shopID: shop.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entry attendancedomain.ClockEntry
	require.NoError(t, e.db.Where("id = ?", shifts.Entries[0].ID).First(&entry).Error)
	assert.Equal(t, attendancedomain.StatusApproved, entry.Status)
}
