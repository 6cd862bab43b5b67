package repositories

import (
	"context"
	"testing"
	"time"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func strPtr(s string) *string { return &s }

type TenantRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     TenantRepository
	tenantID uuid.UUID
	context  context.Context
}

func (suite *TenantRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewTenantRepo(mock)
	suite.tenantID = uuid.New()
	suite.context = context.Background()
}

func (suite *TenantRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestTenantRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TenantRepoTestSuite))
}

func (suite *TenantRepoTestSuite) TestCreate_Success() {
	tenant := &models.Tenant{
		ID:           suite.tenantID,
		Name:         "Kofi Pharmacy",
		Slug:         "kofi-pharmacy",
		BusinessType: models.BusinessPharmacy,
		CountryCode:  "GH",
		Phone:        "+233241234567",
		Status:       models.TenantPending,
	}

	suite.mock.ExpectExec(`INSERT INTO tenants`).
		WithArgs(tenant.ID, tenant.Name, tenant.Slug, tenant.BusinessType, tenant.CountryCode, tenant.Phone,
			tenant.Email, tenant.OwnerID, models.TenantPending).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.repo.Create(suite.context, tenant))
}

func (suite *TenantRepoTestSuite) TestGetBySlug_Success() {
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "name", "slug", "business_type", "country_code", "phone", "email", "owner_id",
		"status", "status_reason", "approved_at", "created_at", "updated_at"}).
		AddRow(suite.tenantID, "Kofi Pharmacy", "kofi-pharmacy", models.BusinessPharmacy, "GH", "+233241234567",
			strPtr("kofi@example.com"), nil, models.TenantActive, nil, &now, now, now)

	suite.mock.ExpectQuery(`FROM tenants WHERE slug = \$1`).
		WithArgs("kofi-pharmacy").
		WillReturnRows(rows)

	tenant, err := suite.repo.GetBySlug(suite.context, "kofi-pharmacy")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.tenantID, tenant.ID)
	assert.Equal(suite.T(), models.TenantActive, tenant.Status)
	assert.Equal(suite.T(), "kofi@example.com", *tenant.Email)
	assert.True(suite.T(), tenant.CanSell())
}

func (suite *TenantRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(`FROM tenants WHERE id = \$1`).
		WithArgs(suite.tenantID).
		WillReturnError(pgx.ErrNoRows)

	tenant, err := suite.repo.GetByID(suite.context, suite.tenantID)
	assert.Nil(suite.T(), tenant)
	assert.True(suite.T(), apperr.Is(err, apperr.CodeNotFound))
	assert.Equal(suite.T(), "tenant not found", apperr.As(err).Message())
}

func (suite *TenantRepoTestSuite) TestUpdateStatus_Success() {
	suite.mock.ExpectExec(`UPDATE tenants`).
		WithArgs(models.TenantActive, (*string)(nil), suite.tenantID, models.TenantPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.UpdateStatus(suite.context, suite.tenantID, models.TenantPending, models.TenantActive, nil)
	assert.NoError(suite.T(), err)
}

func (suite *TenantRepoTestSuite) TestUpdateStatus_AlreadyMoved() {
	reason := strPtr("documents missing")
	suite.mock.ExpectExec(`UPDATE tenants`).
		WithArgs(models.TenantRejected, reason, suite.tenantID, models.TenantPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.UpdateStatus(suite.context, suite.tenantID, models.TenantPending, models.TenantRejected, reason)
	assert.True(suite.T(), apperr.Is(err, apperr.CodeStateConflict))
}

func (suite *TenantRepoTestSuite) TestCountByStatus() {
	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow(models.TenantActive, 4).
		AddRow(models.TenantPending, 2)

	suite.mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM tenants GROUP BY status`).
		WithArgs().
		WillReturnRows(rows)

	counts, err := suite.repo.CountByStatus(suite.context)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, counts[models.TenantActive])
	assert.Equal(suite.T(), 2, counts[models.TenantPending])
	assert.Equal(suite.T(), 0, counts[models.TenantSuspended])
}
