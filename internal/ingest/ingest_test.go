package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "shopping-dashboard/internal/errors"
)

func readString(t *testing.T, content string) (*Dataset, error) {
	t.Helper()
	table, err := ReadCSV(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	return Convert(context.Background(), table)
}

func TestConvert_ClickstreamColumns(t *testing.T) {
	csv := "User_ID,Session_ID,Timestamp,Page_Type,Action\n" +
		"u1,s1,2024-01-05 10:00:00,Home,View\n" +
		"u1,s1,2024-01-05 10:05:30,Product,Purchase\n"

	dataset, err := readString(t, csv)

	require.NoError(t, err)
	assert.Equal(t, FormatClickstream, dataset.Format)
	require.Len(t, dataset.Events, 2)

	e := dataset.Events[1]
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, "Purchase", e.Action)
	assert.Equal(t, "Product", e.PageType)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 5, 30, 0, time.UTC), e.Timestamp)
}

func TestConvert_LowercaseAliases(t *testing.T) {
	csv := "user_id,event_type,timestamp,session_id\n" +
		"user_1,page_view,2024-01-05T10:00:00Z,session_user_1_0\n"

	dataset, err := readString(t, csv)

	require.NoError(t, err)
	assert.Equal(t, FormatEventLog, dataset.Format)
	require.Len(t, dataset.Events, 1)
	assert.Equal(t, "page_view", dataset.Events[0].Action)
	assert.Equal(t, "session_user_1_0", dataset.Events[0].SessionID)
}

func TestConvert_EShopColumns(t *testing.T) {
	csv := "User_ID,Session_ID,Timestamp,Action,page 1 (main category),page 2 (clothing model),order\n" +
		"u1,s1,2024-01-05,view,1,A13,\n" +
		"u1,s1,2024-01-05,view,2,,3\n"

	dataset, err := readString(t, csv)

	require.NoError(t, err)
	assert.Equal(t, FormatEShop, dataset.Format)
	assert.Equal(t, "A13", dataset.Events[0].ClothingModel)
	assert.Empty(t, dataset.Events[0].Order)
	assert.Equal(t, "3", dataset.Events[1].Order)
}

func TestConvert_MissingColumns(t *testing.T) {
	dataset, err := readString(t, "User_ID,Timestamp\nu1,2024-01-01\n")

	require.Error(t, err)
	assert.Nil(t, dataset)
	assert.True(t, apperrors.IsFatalInput(err))
	assert.Contains(t, err.Error(), "Session_ID")
	assert.Contains(t, err.Error(), "Action")
	assert.Contains(t, apperrors.UserMessage(err), apperrors.RequiredColumnsHint)
}

func TestConvert_BadTimestampIsFatal(t *testing.T) {
	csv := "User_ID,Session_ID,Timestamp,Action\n" +
		"u1,s1,2024-01-05 10:00:00,view\n" +
		"u1,s1,not-a-date,view\n"

	dataset, err := readString(t, csv)

	require.Error(t, err)
	assert.Nil(t, dataset)
	assert.True(t, apperrors.IsFatalInput(err))
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "not-a-date")
}

func TestConvert_ReportsFirstBadLineAcrossBatches(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([][]string, batchSize+10)
	for i := range rows {
		rows[i] = []string{"u", "s", base.Add(time.Duration(i) * time.Second).Format(time.RFC3339), "view"}
	}
	// last row of the first batch and first row of the second
	rows[batchSize-1][2] = "bad-first"
	rows[batchSize][2] = "bad-second"

	table := &Table{Header: []string{"User_ID", "Session_ID", "Timestamp", "Action"}, Rows: rows}

	for range 20 {
		dataset, err := Convert(context.Background(), table)
		require.Error(t, err)
		assert.Nil(t, dataset)
		assert.Contains(t, err.Error(), fmt.Sprintf("line %d", batchSize+1))
		assert.Contains(t, err.Error(), "bad-first")
	}
}

func TestConvert_EmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty file", ""},
		{"header only", "User_ID,Session_ID,Timestamp,Action\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset, err := readString(t, tt.csv)
			require.NoError(t, err)
			require.NotNil(t, dataset.Events)
			assert.Empty(t, dataset.Events)
		})
	}
}

func TestConvert_KeepsOrderAcrossBatches(t *testing.T) {
	var b strings.Builder
	b.WriteString("User_ID,Session_ID,Timestamp,Action\n")
	n := batchSize*2 + 17
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		b.WriteString("u,s,")
		b.WriteString(base.Add(time.Duration(i) * time.Second).Format(time.RFC3339))
		b.WriteString(",view\n")
	}

	dataset, err := readString(t, b.String())

	require.NoError(t, err)
	require.Len(t, dataset.Events, n)
	for i, e := range dataset.Events {
		if !e.Timestamp.Equal(base.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("row %d out of order: %v", i, e.Timestamp)
		}
	}
}

func TestReadCSV_RaggedRowsAndBOM(t *testing.T) {
	table, err := ReadCSV(context.Background(), strings.NewReader("\ufeffUser_ID, Session_ID ,Timestamp,Action\nu1,s1\n"))

	require.NoError(t, err)
	assert.Equal(t, []string{"User_ID", "Session_ID", "Timestamp", "Action"}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Len(t, table.Rows[0], 2)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("User_ID,Session_ID,Timestamp,Action\nu1,s1,2024-02-01,purchase\n"), 0o644))

	dataset, err := ReadFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, dataset.Events, 1)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.False(t, apperrors.IsFatalInput(err))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-09T14:30:00Z", want, false},
		{"2024-03-09T16:30:00+02:00", want, false},
		{"2024-03-09 14:30:00", want, false},
		{"2024-03-09 14:30:00.000", want, false},
		{"2024-03-09T14:30:00", want, false},
		{"2024-03-09 14:30", want, false},
		{"03/09/2024 14:30", want, false},
		{"2024-03-09", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatClickstream, DetectFormat([]string{"User_ID", "Page_Type", "Action"}))
	assert.Equal(t, FormatEShop, DetectFormat([]string{"page 1 (main category)", "page 2 (clothing model)", "order"}))
	assert.Equal(t, FormatEventLog, DetectFormat([]string{"page 1 (main category)", "order"}))
	assert.Equal(t, FormatEventLog, DetectFormat(nil))
	assert.Equal(t, "e-shop", FormatEShop.String())
}
