package services

import (
	"testing"

	"recruitment-platform/internal/testutil"

	"go.uber.org/zap"
)

type testServices struct {
	tc           *testutil.TestContext
	activities   *ActivityService
	tenants      *TenantService
	memberships  *MembershipService
	users        *UserService
	auth         *AuthService
	aiConfigs    *AIConfigService
	vacancies    *VacancyService
	applications *ApplicationService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	tc := testutil.SetupTestContext(t)
	log := zap.NewNop()
	activities := NewActivityService(tc.DB, log)
	tenants := NewTenantService(tc.DB, log, activities)

	return &testServices{
		tc:           tc,
		activities:   activities,
		tenants:      tenants,
		memberships:  NewMembershipService(tc.DB, log, activities),
		users:        NewUserService(tc.DB, log, activities),
		auth:         NewAuthService(tc.DB, tc.JWTService, tenants, activities, log),
		aiConfigs:    NewAIConfigService(tc.DB, log),
		vacancies:    NewVacancyService(tc.DB, log, activities),
		applications: NewApplicationService(tc.DB, log, activities, tc.Config.AI.ScreeningWorkers),
	}
}
