package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testClientName         = "شركة التقنية المتقدمة"
	testClientNameEn       = "Advanced Technology Company"
	testClientContactName  = "أحمد محمد"
	testClientContactEmail = "Ahmed@AdvTech.SA"
)

func validClientInput() ClientInput {
	return ClientInput{
		Name:              "  " + testClientName + " ",
		NameEn:            testClientNameEn,
		Industry:          "التقنية",
		IndustryEn:        "Technology",
		ContactName:       testClientContactName,
		ContactNameEn:     "Ahmed Mohammed",
		ContactEmail:      testClientContactEmail,
		Status:            ClientStatusActive,
		TotalProjects:     5,
		ActiveProjects:    2,
		CompletedProjects: 3,
		TotalValue:        850000,
		PaidValue:         650000,
		Satisfaction:      95,
		Tags:              []string{"تقنية", " تقنية ", "", "حكومي"},
		TagsEn:            []string{"Technology", "Government"},
	}
}

func TestNewClientValidatesAndNormalizes(t *testing.T) {
	client, err := NewClient(validClientInput())
	require.NoError(t, err)

	require.NotEmpty(t, client.ID)
	require.Equal(t, testClientName, client.Name)
	require.Equal(t, strings.ToLower(testClientContactEmail), client.ContactEmail)
	require.Equal(t, ClientStatusActive, client.Status)
	require.Equal(t, []string{"تقنية", "حكومي"}, []string(client.Tags))
	require.InDelta(t, 200000.0, client.OutstandingValue(), 0.001)
}

func TestNewClientDefaultsStatusToProspect(t *testing.T) {
	input := validClientInput()
	input.Status = ""
	client, err := NewClient(input)
	require.NoError(t, err)
	require.Equal(t, ClientStatusProspect, client.Status)
}

func TestNewClientAssignsUniqueIdentifiers(t *testing.T) {
	seen := make(map[string]struct{})
	for index := 0; index < 50; index++ {
		client, err := NewClient(validClientInput())
		require.NoError(t, err)
		_, duplicate := seen[client.ID]
		require.False(t, duplicate)
		seen[client.ID] = struct{}{}
	}
}

func TestNewClientCollectsFieldErrors(t *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(*ClientInput)
		expectedField string
		expectedCode  string
	}{
		{name: "missing name", mutate: func(input *ClientInput) { input.Name = "  " }, expectedField: "name", expectedCode: FieldErrorRequired},
		{name: "missing contact", mutate: func(input *ClientInput) { input.ContactName = "" }, expectedField: "contact_name", expectedCode: FieldErrorRequired},
		{name: "bad email", mutate: func(input *ClientInput) { input.ContactEmail = "ahmed@" }, expectedField: "contact_email", expectedCode: FieldErrorInvalidEmail},
		{name: "unknown status", mutate: func(input *ClientInput) { input.Status = "archived" }, expectedField: "status", expectedCode: FieldErrorInvalidValue},
		{name: "satisfaction above range", mutate: func(input *ClientInput) { input.Satisfaction = 101 }, expectedField: "satisfaction", expectedCode: FieldErrorOutOfRange},
		{name: "satisfaction below range", mutate: func(input *ClientInput) { input.Satisfaction = -1 }, expectedField: "satisfaction", expectedCode: FieldErrorOutOfRange},
		{name: "negative projects", mutate: func(input *ClientInput) { input.ActiveProjects = -1 }, expectedField: "active_projects", expectedCode: FieldErrorNegative},
		{name: "project counts exceed total", mutate: func(input *ClientInput) { input.TotalProjects = 4 }, expectedField: "total_projects", expectedCode: FieldErrorOutOfRange},
		{name: "paid exceeds total", mutate: func(input *ClientInput) { input.PaidValue = 900000 }, expectedField: "paid_value", expectedCode: FieldErrorExceedsTotal},
		{name: "too many tags", mutate: func(input *ClientInput) {
			input.Tags = nil
			for index := 0; index <= clientTagMaxCount; index++ {
				input.Tags = append(input.Tags, strings.Repeat("t", index+1))
			}
		}, expectedField: "tags", expectedCode: FieldErrorTooLong},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			input := validClientInput()
			testCase.mutate(&input)
			_, err := NewClient(input)
			require.ErrorIs(t, err, ErrInvalidClient)
			fieldErrors, ok := FieldErrorsOf(err)
			require.True(t, ok)
			require.Equal(t, testCase.expectedCode, fieldErrors[testCase.expectedField])
		})
	}
}

func TestClientSatisfactionBoundariesAccepted(t *testing.T) {
	for _, satisfaction := range []int{MinSatisfaction, MaxSatisfaction} {
		input := validClientInput()
		input.Satisfaction = satisfaction
		_, err := NewClient(input)
		require.NoError(t, err)
	}
}

func TestClientWithInputPreservesIdentifier(t *testing.T) {
	client, err := NewClient(validClientInput())
	require.NoError(t, err)

	input := client.Input()
	input.Status = ClientStatusInactive
	updated, err := client.WithInput(input)
	require.NoError(t, err)
	require.Equal(t, client.ID, updated.ID)
	require.Equal(t, ClientStatusInactive, updated.Status)
}

func TestClientDisplayNameFallsBackToArabic(t *testing.T) {
	input := validClientInput()
	client, err := NewClient(input)
	require.NoError(t, err)
	require.Equal(t, testClientNameEn, client.DisplayName("en"))
	require.Equal(t, testClientName, client.DisplayName("ar"))

	input.NameEn = ""
	client, err = NewClient(input)
	require.NoError(t, err)
	require.Equal(t, testClientName, client.DisplayName("en"))
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	input := validClientInput()
	input.Name = ""
	input.ContactEmail = ""
	_, err := NewClient(input)
	require.EqualError(t, err, "invalid_client: contact_email=required, name=required")
}
