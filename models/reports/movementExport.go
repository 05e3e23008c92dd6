package reports

import (
	"fmt"

	"github.com/transdispo/crates_backend/models"
	"github.com/transdispo/crates_backend/utils"
	"github.com/xuri/excelize/v2"
)

// BuildMovementWorkbook renders the crate movement ledger as a spreadsheet
// for back-office download.
func BuildMovementWorkbook(movements []*models.CrateMovement) (*excelize.File, error) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Sheet1")
	if err != nil {
		return nil, err
	}

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Id")
	f.SetCellValue("Sheet1", "B1", "Date")
	f.SetCellValue("Sheet1", "C1", "Type")
	f.SetCellValue("Sheet1", "D1", "Quantity")
	f.SetCellValue("Sheet1", "E1", "BalanceAfter")
	f.SetCellValue("Sheet1", "F1", "TourId")
	f.SetCellValue("Sheet1", "G1", "ConflictId")
	f.SetCellValue("Sheet1", "H1", "CreatedBy")
	f.SetCellValue("Sheet1", "I1", "Notes")

	// Add data
	for i, m := range movements {
		row := fmt.Sprint(i + 2)
		f.SetCellValue("Sheet1", "A"+row, m.ID)
		f.SetCellValue("Sheet1", "B"+row, m.CreatedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue("Sheet1", "C"+row, string(m.Type))
		f.SetCellValue("Sheet1", "D"+row, m.Quantity)
		f.SetCellValue("Sheet1", "E"+row, m.BalanceAfter)
		f.SetCellValue("Sheet1", "F"+row, utils.DereferencePtr(m.TourId, 0))
		f.SetCellValue("Sheet1", "G"+row, utils.DereferencePtr(m.ConflictId, 0))
		f.SetCellValue("Sheet1", "H"+row, m.CreatedBy)
		f.SetCellValue("Sheet1", "I"+row, m.Notes)
	}

	return f, nil
}
