package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"licensure-verifier/pkg/db/option"
	"licensure-verifier/pkg/errutil"
	"licensure-verifier/pkg/repository"
	"licensure-verifier/services/provider"
	"licensure-verifier/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockLicenseRepository struct {
	createFn func(ctx context.Context, resource *License) error
	findFn   func(ctx context.Context, query *License, opts ...option.QueryOption) ([]*License, error)
}

func (m *mockLicenseRepository) WithTrx(tx *gorm.DB) repository.Repository[License] {
	return m
}

func (m *mockLicenseRepository) Find(ctx context.Context, query *License, opts ...option.QueryOption) ([]*License, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *mockLicenseRepository) FindOne(ctx context.Context, query *License, opts ...option.QueryOption) (*License, error) {
	return nil, nil
}

func (m *mockLicenseRepository) Create(ctx context.Context, resource *License) error {
	if m.createFn != nil {
		return m.createFn(ctx, resource)
	}
	return nil
}

func (m *mockLicenseRepository) Update(context.Context, string, any) error     { return nil }
func (m *mockLicenseRepository) BatchCreate(context.Context, []*License) error { return nil }
func (m *mockLicenseRepository) BatchUpdate(context.Context, []*License) error { return nil }
func (m *mockLicenseRepository) Count(context.Context, *License) (int64, error) {
	return 0, nil
}

type failingAdapter struct{}

func (a *failingAdapter) Jurisdiction() provider.Jurisdiction {
	return provider.Utah
}

func (a *failingAdapter) Fetch(context.Context, string) ([]provider.Record, error) {
	return nil, errors.New("upstream timeout")
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &License{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParams{DB: db, Node: node, Registry: provider.ProvideRegistry()})
	return svc, db
}

func countLicenses(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&License{}).Count(&count).Error)
	return count
}

func TestRunSingleProvider(t *testing.T) {
	svc, db := newTestService(t)

	summary, err := svc.Run(context.Background(), []string{"Utah"})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Requested)
	require.Equal(t, 1, summary.Processed)
	require.Len(t, summary.Outcomes, 1)
	require.Equal(t, "Utah", summary.Outcomes[0].Provider)
	require.Equal(t, "UT", summary.Outcomes[0].Jurisdiction)
	require.Equal(t, 1, summary.Outcomes[0].Records)
	require.Empty(t, summary.Outcomes[0].Error)

	var rows []*License
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.NotEmpty(t, rows[0].ID)
	require.Equal(t, "UT", rows[0].State)
	require.Equal(t, "Utah", rows[0].Provider)
	require.Equal(t, "Jane A. Smith", rows[0].FullName)
	require.Equal(t, "8231441-1205", rows[0].LicenseNumber)
	require.Equal(t, "Active", rows[0].Status)
	require.NotNil(t, rows[0].IssueDate)
	require.NotNil(t, rows[0].ExpiryDate)
	require.Contains(t, string(rows[0].Detail), "Physician")
	require.False(t, rows[0].CreatedAt.IsZero())
	require.False(t, rows[0].LastVerifiedAt.IsZero())
}

func TestRunEmptyProviders(t *testing.T) {
	svc, db := newTestService(t)

	summary, err := svc.Run(context.Background(), []string{})
	require.NoError(t, err)
	require.Equal(t, 0, summary.Requested)
	require.Equal(t, 0, summary.Processed)
	require.Empty(t, summary.Outcomes)
	require.Equal(t, int64(0), countLicenses(t, db))
}

func TestRunUnknownProvider(t *testing.T) {
	svc, db := newTestService(t)

	summary, err := svc.Run(context.Background(), []string{"Atlantis"})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusBadRequest, be.Code)
	require.Len(t, be.Details, 2)
	require.Equal(t, "Atlantis", be.Details[0].Field)
	require.Equal(t, "known_providers", be.Details[1].Field)
	require.Contains(t, be.Details[1].Message, "Utah")

	require.Equal(t, 0, summary.Processed)
	require.Len(t, summary.Outcomes, 1)
	require.NotEmpty(t, summary.Outcomes[0].Error)
	require.Equal(t, int64(0), countLicenses(t, db))
}

func TestRunMixedProvidersBestEffort(t *testing.T) {
	svc, db := newTestService(t)

	summary, err := svc.Run(context.Background(), []string{"Utah", "Atlantis"})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusBadRequest, be.Code)

	require.Equal(t, 2, summary.Requested)
	require.Equal(t, 1, summary.Processed)
	require.Len(t, summary.Outcomes, 2)
	require.Equal(t, 1, summary.Outcomes[0].Records)
	require.Empty(t, summary.Outcomes[0].Error)
	require.NotEmpty(t, summary.Outcomes[1].Error)

	// the successful provider's row stays written
	require.Equal(t, int64(1), countLicenses(t, db))
}

func TestRunAdapterFailure(t *testing.T) {
	db := testutil.NewTestDB(t, &License{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	registry := provider.NewRegistry()
	registry.Register("Utah", &failingAdapter{})

	svc := NewService(ServiceParams{DB: db, Node: node, Registry: registry})

	summary, err := svc.Run(context.Background(), []string{"Utah"})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusBadGateway, be.Code)

	require.Len(t, summary.Outcomes, 1)
	require.Contains(t, summary.Outcomes[0].Error, "lookup failed")
	require.Equal(t, int64(0), countLicenses(t, db))
}

func TestRunStorageFailure(t *testing.T) {
	repo := &mockLicenseRepository{}
	repo.createFn = func(context.Context, *License) error {
		return errors.New("disk full")
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := &Service{
		node:     node,
		registry: provider.ProvideRegistry(),
		licenses: repo,
	}

	summary, err := svc.Run(context.Background(), []string{"Utah", "Atlantis"})
	require.Error(t, err)

	// a storage failure outranks the unknown provider
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusInternal, be.Code)

	require.Equal(t, 0, summary.Processed)
	require.Contains(t, summary.Outcomes[0].Error, "storing records")
}

func TestRunAppendOnly(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Run(context.Background(), []string{"Utah"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Run(context.Background(), []string{"Utah"})
	require.NoError(t, err)

	rows, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotEqual(t, rows[0].ID, rows[1].ID)
	require.NotEqual(t, rows[0].CreatedAt, rows[1].CreatedAt)
	require.Equal(t, rows[0].LicenseNumber, rows[1].LicenseNumber)
}

func TestListFilters(t *testing.T) {
	svc, db := newTestService(t)

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	seed := []*License{
		{ID: "1", FullName: "Jane A. Smith", State: "UT", LicenseNumber: "100", Provider: "Utah", CreatedAt: base},
		{ID: "2", FullName: "John Quincy Doe", State: "UT", LicenseNumber: "200", Provider: "Utah", CreatedAt: base.Add(time.Minute)},
		{ID: "3", FullName: "Janet Planet", State: "CA", LicenseNumber: "300", Provider: "California", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, row := range seed {
		require.NoError(t, db.Create(row).Error)
	}

	rows, err := svc.List(context.Background(), ListFilter{State: "ut"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, "UT", row.State)
	}

	rows, err = svc.List(context.Background(), ListFilter{Provider: "jane"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Jane A. Smith", rows[0].FullName)
	require.Equal(t, "Janet Planet", rows[1].FullName)

	rows, err = svc.List(context.Background(), ListFilter{Provider: "JANE", State: "UT"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "1", rows[0].ID)
}

func TestListInsertionOrder(t *testing.T) {
	svc, db := newTestService(t)

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	// inserted newest first; List must return oldest first
	require.NoError(t, db.Create(&License{ID: "9", FullName: "C", State: "UT", LicenseNumber: "3", CreatedAt: base.Add(2 * time.Minute)}).Error)
	require.NoError(t, db.Create(&License{ID: "5", FullName: "B", State: "UT", LicenseNumber: "2", CreatedAt: base.Add(time.Minute)}).Error)
	require.NoError(t, db.Create(&License{ID: "2", FullName: "A", State: "UT", LicenseNumber: "1", CreatedAt: base}).Error)

	rows, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"2", "5", "9"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestListReadOnlyIdempotence(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Run(context.Background(), []string{"Utah"})
	require.NoError(t, err)

	first, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	second, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, first, second)
}
