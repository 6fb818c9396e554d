// services/network-svc/internal/export/pdf.go
package export

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	builder "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"watergrid/pkg/apperror"
	"watergrid/pkg/config"
	"watergrid/pkg/domain"
)

// Стили
var (
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}
	headerColor    = &props.Color{Red: 44, Green: 62, Blue: 80}
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241}
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141}

	titleStyle = props.Text{
		Size:  22,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerColor,
	}

	h2Style = props.Text{
		Size:  15,
		Style: fontstyle.Bold,
		Color: headerColor,
		Top:   5,
	}

	smallStyle = props.Text{
		Size:  8,
		Color: darkGrayColor,
	}

	metricValueStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
	}

	tableHeaderStyle = &props.Cell{
		BackgroundColor: primaryColor,
	}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{
		Size:  9,
		Align: align.Center,
	}

	lowCoverageTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: dangerColor,
	}
)

// Регионы с покрытием ниже порога выделяются в отчёте отдельно
const lowCoverageThresholdPercent = 50.0

// CoverageReport собирает PDF отчёт о покрытии снабжением: сводные
// метрики, разрез по населённым пунктам и проблемные регионы.
func CoverageReport(overview domain.SupplyOverview, generatedAt time.Time, cfg config.ExportConfig) ([]byte, error) {
	m := maroto.New(pdfConfig(cfg.PDF))

	addHeader(m, cfg.DefaultCompanyName, generatedAt)
	addStats(m, overview.Stats)
	addRegionTable(m, overview.Regions)
	addLowCoverage(m, overview.Regions)
	addFooter(m, generatedAt)

	doc, err := m.Generate()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeExportFailed, "failed to generate coverage report")
	}

	return doc.GetBytes(), nil
}

// pdfConfig переводит настройки экспорта в конфигурацию maroto
func pdfConfig(cfg config.PDFConfig) *entity.Config {
	b := builder.NewBuilder().
		WithPageSize(pageSizeFor(cfg.PageSize)).
		WithOrientation(orientationFor(cfg.Orientation)).
		WithLeftMargin(marginOr(cfg.MarginLeft, 15)).
		WithTopMargin(marginOr(cfg.MarginTop, 15)).
		WithRightMargin(marginOr(cfg.MarginRight, 15))

	if cfg.EnablePageNumbers {
		b = b.WithPageNumber()
	}

	return b.Build()
}

func pageSizeFor(size string) pagesize.Type {
	switch size {
	case "Letter":
		return pagesize.Letter
	case "Legal":
		return pagesize.Legal
	case "A3":
		return pagesize.A3
	default:
		return pagesize.A4
	}
}

func orientationFor(o string) orientation.Type {
	if o == "landscape" {
		return orientation.Horizontal
	}
	return orientation.Vertical
}

func marginOr(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

func addHeader(m core.Maroto, company string, generatedAt time.Time) {
	m.AddRow(15,
		text.NewCol(12, "Water Supply Coverage Report", titleStyle),
	)
	m.AddRow(5,
		line.NewCol(12),
	)
	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("Operator: %s", company), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	m.AddRow(8)
}

func addStats(m core.Maroto, stats domain.SupplyStats) {
	addSection(m, "Network Summary")

	addMetricCards(m, []metricCard{
		{Label: "Coverage", Value: fmt.Sprintf("%.1f%%", stats.CoveragePercent), Highlight: true},
		{Label: "Served Households", Value: fmt.Sprintf("%d / %d", stats.ServedHouseholds, stats.TotalHouseholds), Highlight: true},
		{Label: "Total Flow", Value: fmt.Sprintf("%.2f", stats.TotalFlow)},
		{Label: "Avg per Household", Value: fmt.Sprintf("%.2f", stats.AvgSupplyPerHousehold)},
	})

	m.AddRow(5)
	addMetricCards(m, []metricCard{
		{Label: "Main Valves", Value: fmt.Sprintf("%d", stats.MainValveCount)},
		{Label: "Sub Valves", Value: fmt.Sprintf("%d", stats.SubValveCount)},
		{Label: "Active Tanks", Value: fmt.Sprintf("%d", stats.ActiveTankCount)},
	})
}

func addRegionTable(m core.Maroto, regions []domain.RegionSummary) {
	if len(regions) == 0 {
		return
	}

	addSection(m, "Coverage by Region")

	m.AddRow(8,
		text.NewCol(4, "Region", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Households", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Served", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Coverage", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Flow", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, r := range regions {
		coverage := regionCoverage(r)
		coverageStyle := tableCellTextStyle
		if coverage < lowCoverageThresholdPercent {
			coverageStyle = lowCoverageTextStyle
		}

		m.AddRow(7,
			text.NewCol(4, r.Name, props.Text{Size: 9}).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", r.TotalHouseholds), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", r.ServedHouseholds), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%.1f%%", coverage), coverageStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%.2f", r.TotalFlow), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

func addLowCoverage(m core.Maroto, regions []domain.RegionSummary) {
	var low []domain.RegionSummary
	for _, r := range regions {
		if r.TotalHouseholds > 0 && regionCoverage(r) < lowCoverageThresholdPercent {
			low = append(low, r)
		}
	}

	if len(low) == 0 {
		return
	}

	addSection(m, "Regions Requiring Attention")
	for _, r := range low {
		m.AddRow(6,
			text.NewCol(12,
				fmt.Sprintf("%s: %d of %d households served (%.1f%%)",
					r.Name, r.ServedHouseholds, r.TotalHouseholds, regionCoverage(r)),
				props.Text{Size: 10, Color: dangerColor}),
		)
	}
}

func addFooter(m core.Maroto, generatedAt time.Time) {
	m.AddRow(10)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: lightGrayColor}),
	)
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Generated by WaterGrid | %s", generatedAt.Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}

type metricCard struct {
	Label     string
	Value     string
	Highlight bool
}

func addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}

	colSize := 12 / len(cards)
	if colSize < 2 {
		colSize = 2
	}

	var cols []core.Col
	for _, card := range cards {
		valueStyle := metricValueStyle
		if !card.Highlight {
			valueStyle.Size = 14
		}

		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, valueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}

	m.AddRow(20, cols...)
}

func addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, h2Style),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: primaryColor}),
	)
	m.AddRow(5)
}

// regionCoverage доля обслуженных домохозяйств региона, 0 при пустом регионе
func regionCoverage(r domain.RegionSummary) float64 {
	if r.TotalHouseholds == 0 {
		return 0
	}
	return float64(r.ServedHouseholds) / float64(r.TotalHouseholds) * 100
}
