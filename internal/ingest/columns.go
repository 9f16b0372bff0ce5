package ingest

import (
	"fmt"
	"slices"
	"strings"

	apperrors "shopping-dashboard/internal/errors"
)

// Accepted header names per canonical column; the first present wins.
var (
	timestampAliases = []string{"Timestamp", "timestamp"}
	userIDAliases    = []string{"User_ID", "user_id"}
	sessionIDAliases = []string{"Session_ID", "session_id"}
	actionAliases    = []string{"Action", "event_type"}
)

// Columns holds header positions of the canonical columns. Optional
// columns are -1 when absent.
type Columns struct {
	Timestamp int
	UserID    int
	SessionID int
	Action    int

	PageType      int
	MainCategory  int
	ClothingModel int
	Order         int
}

func ResolveColumns(header []string) (Columns, error) {
	cols := Columns{
		Timestamp:     indexOfAny(header, timestampAliases),
		UserID:        indexOfAny(header, userIDAliases),
		SessionID:     indexOfAny(header, sessionIDAliases),
		Action:        indexOfAny(header, actionAliases),
		PageType:      slices.Index(header, ColumnPageType),
		MainCategory:  slices.Index(header, ColumnMainCategory),
		ClothingModel: slices.Index(header, ColumnClothingModel),
		Order:         slices.Index(header, ColumnOrder),
	}

	var missing []string
	if cols.UserID < 0 {
		missing = append(missing, userIDAliases[0])
	}
	if cols.SessionID < 0 {
		missing = append(missing, sessionIDAliases[0])
	}
	if cols.Timestamp < 0 {
		missing = append(missing, timestampAliases[0])
	}
	if cols.Action < 0 {
		missing = append(missing, actionAliases[0])
	}
	if len(missing) > 0 {
		return Columns{}, apperrors.MissingColumn(fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	return cols, nil
}

func indexOfAny(header []string, names []string) int {
	for _, name := range names {
		if i := slices.Index(header, name); i >= 0 {
			return i
		}
	}
	return -1
}
