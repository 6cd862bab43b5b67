package services

import (
	"context"
	"errors"
	"testing"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TenantServiceTestSuite struct {
	suite.Suite
	mockRepo  *MockTenantRepository
	mockCache *MockCacheService
	service   TenantService
}

func (suite *TenantServiceTestSuite) SetupTest() {
	suite.mockRepo = &MockTenantRepository{}
	suite.mockCache = &MockCacheService{}
	suite.service = NewTenantService(suite.mockRepo, suite.mockCache, logger.Nop())

	suite.mockRepo.Test(suite.T())
	suite.mockCache.Test(suite.T())
}

func (suite *TenantServiceTestSuite) TearDownTest() {
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockCache.AssertExpectations(suite.T())
}

func TestTenantServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceTestSuite))
}

func (suite *TenantServiceTestSuite) TestRegister_Success() {
	ctx := context.Background()
	req := &RegisterTenantRequest{
		Name:         "  Osu Pharmacy ",
		BusinessType: models.BusinessPharmacy,
		CountryCode:  "gh",
		Phone:        "024 123 4567",
	}

	suite.mockRepo.On("Create", ctx, mock.MatchedBy(func(t *models.Tenant) bool {
		return t.Name == "Osu Pharmacy" &&
			t.Slug == "osu-pharmacy" &&
			t.CountryCode == "GH" &&
			t.Phone == "+233241234567" &&
			t.Status == models.TenantPending
	})).Return(nil)

	tenant, err := suite.service.Register(ctx, req)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TenantPending, tenant.Status)
	assert.NotEqual(suite.T(), uuid.Nil, tenant.ID)
}

func (suite *TenantServiceTestSuite) TestRegister_ExplicitSlugIsNormalized() {
	ctx := context.Background()
	req := &RegisterTenantRequest{
		Name:         "Lagos Mart",
		Slug:         "Lagos Mart VI!",
		BusinessType: models.BusinessSupermarket,
		CountryCode:  "NG",
		Phone:        "08031234567",
	}

	suite.mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Tenant")).Return(nil)

	tenant, err := suite.service.Register(ctx, req)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "lagos-mart-vi", tenant.Slug)
	assert.Equal(suite.T(), "+2348031234567", tenant.Phone)
}

func (suite *TenantServiceTestSuite) TestRegister_ValidationErrors() {
	ctx := context.Background()
	cases := map[string]*RegisterTenantRequest{
		"empty name":       {Name: " ", BusinessType: models.BusinessShop, CountryCode: "GH", Phone: "0241234567"},
		"unknown business": {Name: "Shop", BusinessType: "casino", CountryCode: "GH", Phone: "0241234567"},
		"unsupported country": {Name: "Shop", BusinessType: models.BusinessShop, CountryCode: "KE",
			Phone: "0712345678"},
		"bad phone": {Name: "Shop", BusinessType: models.BusinessShop, CountryCode: "GH", Phone: "12"},
	}

	for name, req := range cases {
		_, err := suite.service.Register(ctx, req)
		assert.True(suite.T(), apperr.Is(err, apperr.CodeValidation), name)
	}
	suite.mockRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *TenantServiceTestSuite) TestRegister_DuplicateSlug() {
	ctx := context.Background()
	req := &RegisterTenantRequest{Name: "Shop", BusinessType: models.BusinessShop, CountryCode: "GH", Phone: "0241234567"}

	suite.mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Tenant")).
		Return(apperr.New(apperr.CodeConflict, "tenant already exists"))

	tenant, err := suite.service.Register(ctx, req)

	assert.Nil(suite.T(), tenant)
	assert.True(suite.T(), apperr.Is(err, apperr.CodeConflict))
}

func (suite *TenantServiceTestSuite) TestApprove_PendingTenant() {
	ctx := context.Background()
	id := uuid.New()

	suite.mockRepo.On("GetByID", ctx, id).Return(&models.Tenant{ID: id, Status: models.TenantPending}, nil)
	suite.mockRepo.On("UpdateStatus", ctx, id, models.TenantPending, models.TenantActive, (*string)(nil)).Return(nil)
	suite.mockCache.On("InvalidateTenantCache", ctx, id).Return(nil)

	tenant, err := suite.service.Approve(ctx, id)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TenantActive, tenant.Status)
}

func (suite *TenantServiceTestSuite) TestSuspend_StoresReason() {
	ctx := context.Background()
	id := uuid.New()

	suite.mockRepo.On("GetByID", ctx, id).Return(&models.Tenant{ID: id, Status: models.TenantActive}, nil)
	suite.mockRepo.On("UpdateStatus", ctx, id, models.TenantActive, models.TenantSuspended,
		mock.MatchedBy(func(r *string) bool { return r != nil && *r == "unpaid invoices" })).Return(nil)
	suite.mockCache.On("InvalidateTenantCache", ctx, id).Return(errors.New("redis down"))

	tenant, err := suite.service.Suspend(ctx, id, " unpaid invoices ")

	assert.NoError(suite.T(), err, "cache failures must not fail the transition")
	assert.Equal(suite.T(), models.TenantSuspended, tenant.Status)
	assert.Equal(suite.T(), "unpaid invoices", *tenant.StatusReason)
}

func (suite *TenantServiceTestSuite) TestIllegalTransitionsAreStateConflicts() {
	ctx := context.Background()
	id := uuid.New()

	suite.mockRepo.On("GetByID", ctx, id).Return(&models.Tenant{ID: id, Status: models.TenantRejected}, nil)

	_, err := suite.service.Approve(ctx, id)
	assert.True(suite.T(), apperr.Is(err, apperr.CodeStateConflict))
	assert.Equal(suite.T(), "rejected", apperr.As(err).Details()["status"])

	_, err = suite.service.Suspend(ctx, id, "")
	assert.True(suite.T(), apperr.Is(err, apperr.CodeStateConflict))

	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TenantServiceTestSuite) TestRequireActive() {
	ctx := context.Background()
	active, pending := uuid.New(), uuid.New()

	suite.mockRepo.On("GetByID", ctx, active).Return(&models.Tenant{ID: active, Status: models.TenantActive}, nil)
	suite.mockRepo.On("GetByID", ctx, pending).Return(&models.Tenant{ID: pending, Status: models.TenantPending}, nil)

	tenant, err := suite.service.RequireActive(ctx, active)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), active, tenant.ID)

	_, err = suite.service.RequireActive(ctx, pending)
	assert.True(suite.T(), apperr.Is(err, apperr.CodeForbidden))
}

func (suite *TenantServiceTestSuite) TestList_DefaultsAndValidation() {
	ctx := context.Background()
	status := models.TenantPending

	suite.mockRepo.On("List", ctx, &status, 20, 0).Return([]*models.Tenant{{ID: uuid.New()}}, nil)

	tenants, err := suite.service.List(ctx, &status, 0, -5)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), tenants, 1)

	bogus := models.TenantStatus("archived")
	_, err = suite.service.List(ctx, &bogus, 10, 0)
	assert.True(suite.T(), apperr.Is(err, apperr.CodeValidation))
}

func (suite *TenantServiceTestSuite) TestUpdate_KeepsCountryForPhone() {
	ctx := context.Background()
	id := uuid.New()
	existing := &models.Tenant{ID: id, Name: "Old", CountryCode: "NG", Status: models.TenantActive}

	suite.mockRepo.On("GetByID", ctx, id).Return(existing, nil)
	suite.mockRepo.On("Update", ctx, existing).Return(nil)

	tenant, err := suite.service.Update(ctx, id, &UpdateTenantRequest{
		Name:         "New Name",
		BusinessType: models.BusinessWholesale,
		Phone:        "0803 123 4567",
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "New Name", tenant.Name)
	assert.Equal(suite.T(), "+2348031234567", tenant.Phone)
}

func (suite *TenantServiceTestSuite) TestGetByID_NotFound() {
	ctx := context.Background()
	id := uuid.New()

	suite.mockRepo.On("GetByID", ctx, id).Return(nil, apperr.New(apperr.CodeNotFound, "tenant not found"))

	tenant, err := suite.service.GetByID(ctx, id)

	assert.Nil(suite.T(), tenant)
	assert.True(suite.T(), apperr.Is(err, apperr.CodeNotFound))
}
