package dbregistry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
	"github.com/AntonStoeckl/multidb-registry-go/testutil"
)

func Test_Registry_StatusInfo_ShouldReportOK_WhenEveryProbeSucceeds(t *testing.T) {
	registry, factories := setupThreeDatabases(t)

	statusInfo, allOK, statusErr := registry.StatusInfo(context.Background())

	require.NoError(t, statusErr)
	assert.True(t, allOK)
	assert.Equal(t, map[string]dbregistry.Status{
		"audit":     {Status: dbregistry.StatusOK},
		"billing":   {Status: dbregistry.StatusOK},
		"reporting": {Status: dbregistry.StatusOK},
	}, statusInfo)

	// every probe session was released, regardless of outcome
	for dsn, factory := range factories {
		require.Len(t, factory.Sessions, 1, "factory for %q", dsn)
		assert.Equal(t, 1, factory.LastSession().CloseCalls, "factory for %q", dsn)
	}
}

func Test_Registry_StatusInfo_ShouldIssueVersionProbe(t *testing.T) {
	registry, factories := setupThreeDatabases(t)

	_, _, statusErr := registry.StatusInfo(context.Background())

	require.NoError(t, statusErr)
	assert.Equal(t, []string{"SELECT version()"}, factories[billingDSN].LastSession().Statements)
}

func Test_Registry_StatusInfo_ShouldContainSingleFailure_WithoutAbortingOtherProbes(t *testing.T) {
	logger := &recordingLogger{}

	factories := map[string]*testutil.FakeSessionFactory{
		billingDSN:   {},
		reportingDSN: {QueryErr: errors.New("connection refused")},
		auditDSN:     {},
	}

	registry, newErr := dbregistry.NewRegistry(testutil.OpenerForDSNs(factories), dbregistry.WithLogger(logger))
	require.NoError(t, newErr)
	require.NoError(t, registry.SetupAll(context.Background(), map[string]dbregistry.Config{
		"billing":   dbregistry.NewConfig(billingDSN),
		"reporting": dbregistry.NewConfig(reportingDSN),
		"audit":     dbregistry.NewConfig(auditDSN),
	}))

	statusInfo, allOK, statusErr := registry.StatusInfo(context.Background())

	require.NoError(t, statusErr)
	assert.False(t, allOK)
	assert.Equal(t, map[string]dbregistry.Status{
		"audit":     {Status: dbregistry.StatusOK},
		"billing":   {Status: dbregistry.StatusOK},
		"reporting": {Status: dbregistry.StatusFailed},
	}, statusInfo)

	// one diagnostic record for the failed probe, including the error detail
	require.Len(t, logger.errorMessages, 1)
	assert.Equal(t, "health probe failed", logger.errorMessages[0])
	assert.Contains(t, logger.errorArgs[0], "connection refused")

	// the failing database's session was still released
	assert.Equal(t, 1, factories[reportingDSN].LastSession().CloseCalls)
}

func Test_Registry_StatusInfo_ShouldReportFailed_WhenQueryErrorIsDeferredToRows(t *testing.T) {
	logger := &recordingLogger{}

	factories := map[string]*testutil.FakeSessionFactory{
		billingDSN:   {},
		reportingDSN: {RowsErr: errors.New("connection reset mid-result")},
	}

	registry, newErr := dbregistry.NewRegistry(testutil.OpenerForDSNs(factories), dbregistry.WithLogger(logger))
	require.NoError(t, newErr)
	require.NoError(t, registry.SetupAll(context.Background(), map[string]dbregistry.Config{
		"billing":   dbregistry.NewConfig(billingDSN),
		"reporting": dbregistry.NewConfig(reportingDSN),
	}))

	statusInfo, allOK, statusErr := registry.StatusInfo(context.Background())

	require.NoError(t, statusErr)
	assert.False(t, allOK)
	assert.Equal(t, map[string]dbregistry.Status{
		"billing":   {Status: dbregistry.StatusOK},
		"reporting": {Status: dbregistry.StatusFailed},
	}, statusInfo)

	require.Len(t, logger.errorMessages, 1)
	assert.Contains(t, logger.errorArgs[0], "connection reset mid-result")

	// the failing database's session was still released
	assert.Equal(t, 1, factories[reportingDSN].LastSession().CloseCalls)
}

func Test_Registry_StatusInfo_ShouldReportFailed_WhenAcquireFails(t *testing.T) {
	factories := map[string]*testutil.FakeSessionFactory{
		billingDSN:   {},
		reportingDSN: {AcquireErr: errors.New("pool exhausted")},
	}

	registry, newErr := dbregistry.NewRegistry(testutil.OpenerForDSNs(factories))
	require.NoError(t, newErr)
	require.NoError(t, registry.SetupAll(context.Background(), map[string]dbregistry.Config{
		"billing":   dbregistry.NewConfig(billingDSN),
		"reporting": dbregistry.NewConfig(reportingDSN),
	}))

	statusInfo, allOK, statusErr := registry.StatusInfo(context.Background())

	require.NoError(t, statusErr)
	assert.False(t, allOK)
	assert.Equal(t, dbregistry.StatusFailed, statusInfo["reporting"].Status)
	assert.Equal(t, dbregistry.StatusOK, statusInfo["billing"].Status)
}

func Test_Registry_StatusInfo_ShouldReportVacuousSuccess_WithZeroDatabases(t *testing.T) {
	registry, newErr := dbregistry.NewRegistry(testutil.SingleOpener(&testutil.FakeSessionFactory{}))
	require.NoError(t, newErr)
	require.NoError(t, registry.SetupAll(context.Background(), map[string]dbregistry.Config{}))

	statusInfo, allOK, statusErr := registry.StatusInfo(context.Background())

	require.NoError(t, statusErr)
	assert.True(t, allOK)
	assert.Empty(t, statusInfo)
}

func Test_Registry_SetupAll_ShouldBindNamesInSortedOrder_ForStableProbing(t *testing.T) {
	var opened []string

	factories := map[string]*testutil.FakeSessionFactory{
		billingDSN:   {},
		reportingDSN: {},
		auditDSN:     {},
	}

	registry, newErr := dbregistry.NewRegistry(
		func(_ context.Context, cfg dbregistry.Config) (dbregistry.SessionFactory, error) {
			opened = append(opened, cfg.DSN)
			return factories[cfg.DSN], nil
		},
	)
	require.NoError(t, newErr)
	require.NoError(t, registry.SetupAll(context.Background(), map[string]dbregistry.Config{
		"billing":   dbregistry.NewConfig(billingDSN),
		"reporting": dbregistry.NewConfig(reportingDSN),
		"audit":     dbregistry.NewConfig(auditDSN),
	}))

	// registration order is sorted-name order: audit, billing, reporting
	assert.Equal(t, []string{auditDSN, billingDSN, reportingDSN}, opened)
	assert.Equal(t, []string{"audit", "billing", "reporting"}, registry.Names())
}
