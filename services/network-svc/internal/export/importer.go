// services/network-svc/internal/export/importer.go
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"watergrid/pkg/apperror"
	"watergrid/pkg/domain"
)

// ImportReport итог импорта инвентарной книги
type ImportReport struct {
	TanksImported     int                      `json:"tanksImported"`
	ValvesImported    int                      `json:"valvesImported"`
	PipelinesImported int                      `json:"pipelinesImported"`
	Diagnostics       []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
}

// ParsedInventory содержимое книги после разбора. Родитель задвижки
// хранится по имени из колонки Parent Valve; привязку к идентификаторам
// выполняет сервис после создания записей.
type ParsedInventory struct {
	Tanks        []domain.Tank
	Valves       []domain.Valve
	Pipelines    []domain.Pipeline
	ParentByName map[string]string // имя задвижки -> имя родителя
	Diagnostics  []domain.BuildDiagnostic
}

// ReadInventory разбирает инвентарную книгу, созданную InventoryWorkbook.
// Строки с нечитаемыми значениями попадают в диагностику, остальные
// обрабатываются; отсутствие листа не является ошибкой.
func ReadInventory(r io.Reader, maxRows int) (*ParsedInventory, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMalformedWorkbook, "failed to open workbook")
	}
	defer f.Close()

	inv := &ParsedInventory{ParentByName: make(map[string]string)}

	inv.parseTanks(f, maxRows)
	inv.parseValves(f, maxRows)
	inv.parsePipelines(f, maxRows)

	return inv, nil
}

func (inv *ParsedInventory) parseTanks(f *excelize.File, maxRows int) {
	rows := sheetRows(f, SheetTanks, maxRows, &inv.Diagnostics)

	for i, row := range rows {
		rowNum := i + 2

		name := cellString(row, 0)
		if name == "" {
			inv.addDiagnostic(SheetTanks, rowNum, "name is empty; skipped")
			continue
		}

		lat, err1 := cellFloat(row, 1)
		lng, err2 := cellFloat(row, 2)
		if err1 != nil || err2 != nil {
			inv.addDiagnostic(SheetTanks, rowNum, "coordinates are not numeric; skipped")
			continue
		}

		capacity, err := cellFloat(row, 5)
		if err != nil || capacity <= 0 {
			inv.addDiagnostic(SheetTanks, rowNum, "capacity must be a positive number; skipped")
			continue
		}

		current, err := cellFloat(row, 6)
		if err != nil || current < 0 {
			current = 0
		}
		if current > capacity {
			current = capacity
		}

		inv.Tanks = append(inv.Tanks, domain.Tank{
			Name:           name,
			Position:       domain.Position{Latitude: lat, Longitude: lng},
			IsActive:       cellBool(row, 3),
			Locality:       cellString(row, 4),
			CapacityLiters: capacity,
			CurrentLiters:  current,
		})
	}
}

func (inv *ParsedInventory) parseValves(f *excelize.File, maxRows int) {
	rows := sheetRows(f, SheetValves, maxRows, &inv.Diagnostics)

	for i, row := range rows {
		rowNum := i + 2

		name := cellString(row, 0)
		if name == "" {
			inv.addDiagnostic(SheetValves, rowNum, "name is empty; skipped")
			continue
		}

		lat, err1 := cellFloat(row, 1)
		lng, err2 := cellFloat(row, 2)
		if err1 != nil || err2 != nil {
			inv.addDiagnostic(SheetValves, rowNum, "coordinates are not numeric; skipped")
			continue
		}

		category := domain.ValveCategory(strings.ToLower(cellString(row, 4)))
		if !category.IsKnown() {
			inv.addDiagnostic(SheetValves, rowNum, fmt.Sprintf("unknown category %q; skipped", cellString(row, 4)))
			continue
		}

		households, err := cellInt(row, 6)
		if err != nil || households < 0 {
			households = 0
		}

		if parent := cellString(row, 5); parent != "" {
			inv.ParentByName[name] = parent
		}

		inv.Valves = append(inv.Valves, domain.Valve{
			Name:       name,
			Position:   domain.Position{Latitude: lat, Longitude: lng},
			IsOpen:     cellBool(row, 3),
			Category:   category,
			Households: households,
			Locality:   cellString(row, 7),
		})
	}
}

func (inv *ParsedInventory) parsePipelines(f *excelize.File, maxRows int) {
	rows := sheetRows(f, SheetPipelines, maxRows, &inv.Diagnostics)

	for i, row := range rows {
		rowNum := i + 2

		name := cellString(row, 0)
		if name == "" {
			inv.addDiagnostic(SheetPipelines, rowNum, "name is empty; skipped")
			continue
		}

		capacity, err := cellFloat(row, 2)
		if err != nil || capacity <= 0 {
			inv.addDiagnostic(SheetPipelines, rowNum, "capacity must be a positive number; skipped")
			continue
		}

		var waypoints []domain.Position
		if err := json.Unmarshal([]byte(cellString(row, 3)), &waypoints); err != nil {
			inv.addDiagnostic(SheetPipelines, rowNum, "waypoints are not a valid JSON array; skipped")
			continue
		}
		if len(waypoints) < 2 {
			inv.addDiagnostic(SheetPipelines, rowNum, "at least two waypoints required; skipped")
			continue
		}

		inv.Pipelines = append(inv.Pipelines, domain.Pipeline{
			Name:      name,
			Active:    cellBool(row, 1),
			Capacity:  capacity,
			Waypoints: waypoints,
			Locality:  cellString(row, 4),
		})
	}
}

func (inv *ParsedInventory) addDiagnostic(sheet string, row int, message string) {
	inv.Diagnostics = append(inv.Diagnostics, domain.BuildDiagnostic{
		Message: fmt.Sprintf("%s row %d: %s", sheet, row, message),
	})
}

// sheetRows возвращает строки данных листа без заголовка, с учётом
// предела на размер импорта
func sheetRows(f *excelize.File, sheet string, maxRows int, diags *[]domain.BuildDiagnostic) [][]string {
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		return nil
	}

	data := rows[1:]
	if maxRows > 0 && len(data) > maxRows {
		*diags = append(*diags, domain.BuildDiagnostic{
			Message: fmt.Sprintf("%s: %d rows exceed the import limit of %d; extra rows ignored", sheet, len(data), maxRows),
		})
		data = data[:maxRows]
	}

	return data
}

func cellString(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func cellFloat(row []string, idx int) (float64, error) {
	return strconv.ParseFloat(cellString(row, idx), 64)
}

func cellInt(row []string, idx int) (int, error) {
	return strconv.Atoi(cellString(row, idx))
}

func cellBool(row []string, idx int) bool {
	v, err := strconv.ParseBool(strings.ToLower(cellString(row, idx)))
	return err == nil && v
}
