// services/network-svc/internal/export/excel.go
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"watergrid/pkg/apperror"
	"watergrid/pkg/domain"
)

// Имена листов инвентарной книги. Импорт ищет листы по этим же именам.
const (
	SheetTanks     = "Tanks"
	SheetValves    = "Valves"
	SheetPipelines = "Pipelines"
)

// Колонки инвентарных листов
var (
	tankHeaders     = []string{"Name", "Latitude", "Longitude", "Active", "Locality", "Capacity (L)", "Current (L)"}
	valveHeaders    = []string{"Name", "Latitude", "Longitude", "Open", "Category", "Parent Valve", "Households", "Locality"}
	pipelineHeaders = []string{"Name", "Active", "Capacity", "Waypoints", "Locality"}
)

// InventoryWorkbook собирает книгу с полным составом сети: по листу
// на каждый вид сущностей. Книга пригодна для обратного импорта.
func InventoryWorkbook(snapshot domain.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle := newHeaderStyle(f)

	writeTanksSheet(f, headerStyle, snapshot.Tanks)
	writeValvesSheet(f, headerStyle, snapshot.Valves)
	writePipelinesSheet(f, headerStyle, snapshot.Pipelines)

	// Удаляем дефолтный лист
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeExportFailed, "failed to write inventory workbook")
	}

	return buf.Bytes(), nil
}

// SupplyWorkbook собирает книгу с результатами распределения снабжения:
// сводка, разрез по населённым пунктам и дерево задвижек.
func SupplyWorkbook(overview domain.SupplyOverview) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle := newHeaderStyle(f)

	writeOverviewSheet(f, headerStyle, overview.Stats)
	writeRegionsSheet(f, headerStyle, overview.Regions)
	writeValveTreeSheet(f, headerStyle, overview.ValveTree)

	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeExportFailed, "failed to write supply workbook")
	}

	return buf.Bytes(), nil
}

func writeTanksSheet(f *excelize.File, headerStyle int, tanks []domain.Tank) {
	f.NewSheet(SheetTanks)
	writeHeaders(f, SheetTanks, headerStyle, tankHeaders)

	for i, t := range tanks {
		row := i + 2
		f.SetCellValue(SheetTanks, cellAddr("A", row), t.Name)
		f.SetCellValue(SheetTanks, cellAddr("B", row), t.Position.Latitude)
		f.SetCellValue(SheetTanks, cellAddr("C", row), t.Position.Longitude)
		f.SetCellValue(SheetTanks, cellAddr("D", row), t.IsActive)
		f.SetCellValue(SheetTanks, cellAddr("E", row), t.Locality)
		f.SetCellValue(SheetTanks, cellAddr("F", row), t.CapacityLiters)
		f.SetCellValue(SheetTanks, cellAddr("G", row), t.CurrentLiters)
	}

	f.SetColWidth(SheetTanks, "A", "A", 24)
	f.SetColWidth(SheetTanks, "B", "C", 14)
	f.SetColWidth(SheetTanks, "E", "E", 20)
}

func writeValvesSheet(f *excelize.File, headerStyle int, valves []domain.Valve) {
	f.NewSheet(SheetValves)
	writeHeaders(f, SheetValves, headerStyle, valveHeaders)

	// Родитель записывается по имени, чтобы книга не зависела от
	// идентификаторов конкретной базы
	names := make(map[string]string, len(valves))
	for _, v := range valves {
		names[v.ID] = v.Name
	}

	for i, v := range valves {
		row := i + 2
		f.SetCellValue(SheetValves, cellAddr("A", row), v.Name)
		f.SetCellValue(SheetValves, cellAddr("B", row), v.Position.Latitude)
		f.SetCellValue(SheetValves, cellAddr("C", row), v.Position.Longitude)
		f.SetCellValue(SheetValves, cellAddr("D", row), v.IsOpen)
		f.SetCellValue(SheetValves, cellAddr("E", row), string(v.Category))
		f.SetCellValue(SheetValves, cellAddr("F", row), names[v.ParentValveID])
		f.SetCellValue(SheetValves, cellAddr("G", row), v.Households)
		f.SetCellValue(SheetValves, cellAddr("H", row), v.Locality)
	}

	f.SetColWidth(SheetValves, "A", "A", 24)
	f.SetColWidth(SheetValves, "B", "C", 14)
	f.SetColWidth(SheetValves, "F", "F", 24)
	f.SetColWidth(SheetValves, "H", "H", 20)
}

func writePipelinesSheet(f *excelize.File, headerStyle int, pipelines []domain.Pipeline) {
	f.NewSheet(SheetPipelines)
	writeHeaders(f, SheetPipelines, headerStyle, pipelineHeaders)

	for i, p := range pipelines {
		row := i + 2
		f.SetCellValue(SheetPipelines, cellAddr("A", row), p.Name)
		f.SetCellValue(SheetPipelines, cellAddr("B", row), p.Active)
		f.SetCellValue(SheetPipelines, cellAddr("C", row), p.Capacity)
		f.SetCellValue(SheetPipelines, cellAddr("D", row), marshalWaypoints(p.Waypoints))
		f.SetCellValue(SheetPipelines, cellAddr("E", row), p.Locality)
	}

	f.SetColWidth(SheetPipelines, "A", "A", 24)
	f.SetColWidth(SheetPipelines, "D", "D", 60)
	f.SetColWidth(SheetPipelines, "E", "E", 20)
}

func writeOverviewSheet(f *excelize.File, headerStyle int, stats domain.SupplyStats) {
	sheet := "Overview"
	f.NewSheet(sheet)

	f.SetCellValue(sheet, "A1", "Water Supply Overview")
	f.MergeCell(sheet, "A1", "B1")
	f.SetCellStyle(sheet, "A1", "B1", headerStyle)

	rows := []struct {
		label string
		value any
	}{
		{"Total Households", stats.TotalHouseholds},
		{"Served Households", stats.ServedHouseholds},
		{"Coverage (%)", stats.CoveragePercent},
		{"Total Flow", stats.TotalFlow},
		{"Avg Supply per Household", stats.AvgSupplyPerHousehold},
		{"Main Valves", stats.MainValveCount},
		{"Sub Valves", stats.SubValveCount},
		{"Active Tanks", stats.ActiveTankCount},
	}

	for i, r := range rows {
		row := i + 2
		f.SetCellValue(sheet, cellAddr("A", row), r.label)
		f.SetCellValue(sheet, cellAddr("B", row), r.value)
	}

	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "B", 16)
}

func writeRegionsSheet(f *excelize.File, headerStyle int, regions []domain.RegionSummary) {
	sheet := "Regions"
	f.NewSheet(sheet)
	writeHeaders(f, sheet, headerStyle, []string{"Region", "Valves", "Total Households", "Served Households", "Total Flow"})

	for i, r := range regions {
		row := i + 2
		f.SetCellValue(sheet, cellAddr("A", row), r.Name)
		f.SetCellValue(sheet, cellAddr("B", row), len(r.Valves))
		f.SetCellValue(sheet, cellAddr("C", row), r.TotalHouseholds)
		f.SetCellValue(sheet, cellAddr("D", row), r.ServedHouseholds)
		f.SetCellValue(sheet, cellAddr("E", row), r.TotalFlow)
	}

	f.SetColWidth(sheet, "A", "A", 24)
	f.SetColWidth(sheet, "C", "E", 18)
}

func writeValveTreeSheet(f *excelize.File, headerStyle int, tree []domain.ValveTreeNode) {
	sheet := "Valve Tree"
	f.NewSheet(sheet)
	writeHeaders(f, sheet, headerStyle, []string{"Valve", "Category", "Households", "Direct Households", "Served Households", "Total Flow"})

	row := 2
	for _, node := range tree {
		f.SetCellValue(sheet, cellAddr("A", row), node.Valve.Name)
		f.SetCellValue(sheet, cellAddr("B", row), string(node.Valve.Category))
		f.SetCellValue(sheet, cellAddr("C", row), node.Valve.Households)
		f.SetCellValue(sheet, cellAddr("D", row), node.DirectHouseholds)
		f.SetCellValue(sheet, cellAddr("E", row), node.ServedHouseholds)
		f.SetCellValue(sheet, cellAddr("F", row), node.TotalFlow)
		row++

		for _, child := range node.Children {
			f.SetCellValue(sheet, cellAddr("A", row), "  "+child.Valve.Name)
			f.SetCellValue(sheet, cellAddr("B", row), string(child.Valve.Category))
			f.SetCellValue(sheet, cellAddr("C", row), child.Valve.Households)
			f.SetCellValue(sheet, cellAddr("E", row), child.ServedHouseholds)
			f.SetCellValue(sheet, cellAddr("F", row), child.TotalFlow)
			row++
		}
	}

	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "C", "F", 18)
}

// newHeaderStyle стиль заголовков таблиц: белый жирный текст на синем фоне
func newHeaderStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return style
}

func writeHeaders(f *excelize.File, sheet string, style int, headers []string) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellAddr(string(rune('A'+i)), 1), h)
	}
	last := string(rune('A' + len(headers) - 1))
	f.SetCellStyle(sheet, "A1", last+"1", style)
}

// marshalWaypoints сериализует точки в JSON для одной ячейки
func marshalWaypoints(waypoints []domain.Position) string {
	data, err := json.Marshal(waypoints)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// cellAddr возвращает адрес ячейки вида A1
func cellAddr(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
