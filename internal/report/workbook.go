package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/i18n"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

const defaultSheetName = "Sheet1"

var clientColumnKeys = []string{
	"report.column.name",
	"report.column.industry",
	"report.column.contact",
	"report.column.email",
	"report.column.status",
	"report.column.projects",
	"report.column.total_value",
	"report.column.paid_value",
	"report.column.outstanding",
	"report.column.satisfaction",
	"report.column.tags",
}

// WriteClientsWorkbook renders clients as a single-sheet XLSX workbook with
// headers, names and status labels in lang. Arabic sheets are right-to-left.
func WriteClientsWorkbook(writer io.Writer, clients []model.Client, lang string) error {
	lang = i18n.Normalize(lang, i18n.DefaultLanguage)
	workbook := excelize.NewFile()
	defer func() { _ = workbook.Close() }()

	sheetName := i18n.T(lang, "report.sheet.clients")
	if err := workbook.SetSheetName(defaultSheetName, sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rightToLeft := i18n.Direction(lang) == i18n.DirectionRTL
	if err := workbook.SetSheetView(sheetName, 0, &excelize.ViewOptions{RightToLeft: &rightToLeft}); err != nil {
		return fmt.Errorf("set sheet view: %w", err)
	}

	headers := make([]interface{}, 0, len(clientColumnKeys))
	for _, key := range clientColumnKeys {
		headers = append(headers, i18n.T(lang, key))
	}
	if err := workbook.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	headerStyle, err := workbook.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeaderCell, err := excelize.CoordinatesToCellName(len(clientColumnKeys), 1)
	if err != nil {
		return fmt.Errorf("resolve header range: %w", err)
	}
	if err := workbook.SetCellStyle(sheetName, "A1", lastHeaderCell, headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	for index, client := range clients {
		cell, err := excelize.CoordinatesToCellName(1, index+2)
		if err != nil {
			return fmt.Errorf("resolve row %d: %w", index+2, err)
		}
		tags := client.Tags
		if lang == i18n.LanguageEnglish && len(client.TagsEn) > 0 {
			tags = client.TagsEn
		}
		row := []interface{}{
			client.DisplayName(lang),
			client.DisplayIndustry(lang),
			client.DisplayContactName(lang),
			client.ContactEmail,
			i18n.Label(lang, "client_status", client.Status),
			client.TotalProjects,
			client.TotalValue,
			client.PaidValue,
			client.OutstandingValue(),
			client.Satisfaction,
			strings.Join(tags, ", "),
		}
		if err := workbook.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", index+2, err)
		}
	}

	if err := workbook.SetColWidth(sheetName, "A", "D", 28); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if err := workbook.Write(writer); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
