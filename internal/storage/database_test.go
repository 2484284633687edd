package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/storage"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/testutil"
)

const (
	testUnsupportedDriverName        = "unsupported-driver"
	testUnsupportedDriverDescription = "unsupported driver"
	testMissingDriverDescription     = "missing driver"
	testMissingDataSourceDescription = "missing data source"
	testMissingPostgresDSNDesc       = "missing postgres data source"
	testContactEmailValue            = "contact@advtech.sa"
)

func openMigratedDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.OpenMigratedDatabase(t)
}

func createTestClient(t *testing.T, database *gorm.DB, name string) model.Client {
	t.Helper()
	client, err := model.NewClient(model.ClientInput{
		Name:         name,
		ContactName:  "أحمد",
		ContactEmail: testContactEmailValue,
		Status:       model.ClientStatusActive,
	})
	require.NoError(t, err)
	require.NoError(t, database.Create(&client).Error)
	return client
}

func TestOpenDatabaseWithSQLiteConfiguration(t *testing.T) {
	database := openMigratedDatabase(t)

	client := createTestClient(t, database, "شركة التقنية المتقدمة")
	client.Tags = []string{"تقنية", "حكومي"}
	require.NoError(t, database.Save(&client).Error)

	var fetchedClient model.Client
	require.NoError(t, database.First(&fetchedClient, "id = ?", client.ID).Error)
	require.Equal(t, client.Name, fetchedClient.Name)
	require.Equal(t, []string{"تقنية", "حكومي"}, []string(fetchedClient.Tags))
}

func TestOpenDatabaseValidation(t *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(t)

	testCases := []struct {
		name              string
		configuration     storage.Config
		expectedRootError error
	}{
		{
			name: testMissingDriverDescription,
			configuration: storage.Config{
				DriverName:     "",
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrMissingDatabaseDriverName,
		},
		{
			name: testUnsupportedDriverDescription,
			configuration: storage.Config{
				DriverName:     testUnsupportedDriverName,
				DataSourceName: sqliteDatabase.DataSourceName(),
			},
			expectedRootError: storage.ErrUnsupportedDatabaseDriver,
		},
		{
			name: testMissingDataSourceDescription,
			configuration: storage.Config{
				DriverName:     storage.DriverNameSQLite,
				DataSourceName: "",
			},
			expectedRootError: storage.ErrMissingDataSourceName,
		},
		{
			name: testMissingPostgresDSNDesc,
			configuration: storage.Config{
				DriverName:     storage.DriverNamePostgres,
				DataSourceName: "  ",
			},
			expectedRootError: storage.ErrMissingDataSourceName,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			_, openErr := storage.OpenDatabase(testCase.configuration)
			require.Error(testingT, openErr)
			require.True(testingT, errors.Is(openErr, testCase.expectedRootError))
		})
	}
}

func TestAutoMigrateNormalizesStoredEmails(t *testing.T) {
	database := openMigratedDatabase(t)

	client := createTestClient(t, database, "مجموعة الخليج")
	require.NoError(t, database.Model(&model.Client{}).Where("id = ?", client.ID).Update("contact_email", "  Contact@AdvTech.SA ").Error)

	require.NoError(t, storage.AutoMigrate(database))

	var refreshed model.Client
	require.NoError(t, database.First(&refreshed, "id = ?", client.ID).Error)
	require.Equal(t, testContactEmailValue, refreshed.ContactEmail)
}

func TestProjectMemberUniquePerProject(t *testing.T) {
	database := openMigratedDatabase(t)

	first, err := model.NewProjectMember(model.ProjectMemberInput{ProjectID: "project-1", UserID: "user-1", MemberType: string(model.MemberTypeConsultant)})
	require.NoError(t, err)
	require.NoError(t, database.Create(&first).Error)

	duplicate, err := model.NewProjectMember(model.ProjectMemberInput{ProjectID: "project-1", UserID: "user-1", MemberType: string(model.MemberTypeProjectManager)})
	require.NoError(t, err)
	duplicateErr := database.Create(&duplicate).Error
	require.Error(t, duplicateErr)
	require.True(t, storage.IsDuplicateKey(duplicateErr))

	other, err := model.NewProjectMember(model.ProjectMemberInput{ProjectID: "project-2", UserID: "user-1", MemberType: string(model.MemberTypeConsultant)})
	require.NoError(t, err)
	require.NoError(t, database.Create(&other).Error)
}

func TestMemberScopeQueries(t *testing.T) {
	database := openMigratedDatabase(t)
	ctx := context.Background()

	firstClient := createTestClient(t, database, "العميل الأول")
	secondClient := createTestClient(t, database, "العميل الثاني")
	createTestClient(t, database, "العميل الثالث")

	var projectIDs []string
	for _, clientID := range []string{firstClient.ID, firstClient.ID, secondClient.ID} {
		project, err := model.NewProject(model.ProjectInput{ClientID: clientID, Name: "مشروع"})
		require.NoError(t, err)
		require.NoError(t, database.Create(&project).Error)
		member, err := model.NewProjectMember(model.ProjectMemberInput{ProjectID: project.ID, UserID: "consultant-1", MemberType: string(model.MemberTypeConsultant)})
		require.NoError(t, err)
		require.NoError(t, database.Create(&member).Error)
		projectIDs = append(projectIDs, project.ID)
	}

	memberProjects, err := storage.MemberProjectIDs(ctx, database, "consultant-1")
	require.NoError(t, err)
	require.ElementsMatch(t, projectIDs, memberProjects)

	memberClients, err := storage.MemberClientIDs(ctx, database, "consultant-1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{firstClient.ID, secondClient.ID}, memberClients)

	none, err := storage.MemberClientIDs(ctx, database, "nobody")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSeedDemoDataIsIdempotent(t *testing.T) {
	database := openMigratedDatabase(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	plainHasher := func(password string) (string, error) { return "hash:" + password, nil }

	result, err := storage.SeedDemoData(ctx, database, plainHasher, now)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, 4, result.Clients)
	require.Equal(t, 6, result.Users)

	var invoices []model.Invoice
	require.NoError(t, database.Preload("Items").Find(&invoices).Error)
	require.Len(t, invoices, 1)
	require.Equal(t, "INV-2024-0001", invoices[0].Number)
	require.Equal(t, 57500.0, invoices[0].Total)
	require.Len(t, invoices[0].Items, 1)

	again, err := storage.SeedDemoData(ctx, database, plainHasher, now)
	require.NoError(t, err)
	require.True(t, again.Skipped)

	var userCount int64
	require.NoError(t, database.Model(&model.User{}).Count(&userCount).Error)
	require.Equal(t, int64(6), userCount)
}

func TestSeedDemoDataRequiresHasher(t *testing.T) {
	database := openMigratedDatabase(t)
	_, err := storage.SeedDemoData(context.Background(), database, nil, time.Now())
	require.ErrorIs(t, err, storage.ErrMissingPasswordHasher)
}
