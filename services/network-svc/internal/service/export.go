// services/network-svc/internal/service/export.go
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"watergrid/pkg/config"
	"watergrid/pkg/domain"
	"watergrid/pkg/metrics"
	"watergrid/pkg/telemetry"
	"watergrid/services/network-svc/internal/export"
)

// ExportService выгрузка и загрузка данных сети: инвентарные книги Excel,
// PDF отчёт о покрытии, импорт книги обратно в хранилище
type ExportService struct {
	network *NetworkService
	cfg     config.ExportConfig
}

// NewExportService создаёт сервис импорта и экспорта
func NewExportService(network *NetworkService, cfg config.ExportConfig) *ExportService {
	return &ExportService{network: network, cfg: cfg}
}

// NetworkWorkbook выгружает текущий состав сети в книгу Excel
func (s *ExportService) NetworkWorkbook(ctx context.Context) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.NetworkWorkbook")
	defer span.End()

	snapshot, err := s.network.loadSnapshot(ctx)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	data, err := export.InventoryWorkbook(*snapshot)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	telemetry.AddEvent(ctx, "network_exported",
		telemetry.ExportAttributes("network.xlsx", len(data))...)
	return data, nil
}

// SupplyWorkbook выгружает расчёт снабжения в книгу Excel
func (s *ExportService) SupplyWorkbook(ctx context.Context) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.SupplyWorkbook")
	defer span.End()

	comp, err := s.network.ComputeSupply(ctx)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	data, err := export.SupplyWorkbook(comp.Supply)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	telemetry.AddEvent(ctx, "supply_exported",
		telemetry.ExportAttributes("supply.xlsx", len(data))...)
	return data, nil
}

// CoveragePDF собирает PDF отчёт о покрытии снабжением
func (s *ExportService) CoveragePDF(ctx context.Context) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.CoveragePDF")
	defer span.End()

	comp, err := s.network.ComputeSupply(ctx)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	data, err := export.CoverageReport(comp.Supply, time.Now(), s.cfg)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	telemetry.AddEvent(ctx, "coverage_exported",
		telemetry.ExportAttributes("coverage.pdf", len(data))...)
	return data, nil
}

// ImportNetwork загружает инвентарную книгу в хранилище. Строки с
// ошибками попадают в диагностику отчёта, остальные импортируются.
func (s *ExportService) ImportNetwork(ctx context.Context, r io.Reader) (*export.ImportReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.ImportNetwork")
	defer span.End()

	start := time.Now()

	inv, err := export.ReadInventory(r, s.cfg.MaxImportRows)
	if err != nil {
		metrics.Get().RecordCompute("import", false, time.Since(start))
		telemetry.SetError(ctx, err)
		return nil, err
	}

	report := &export.ImportReport{Diagnostics: inv.Diagnostics}

	s.importTanks(ctx, inv.Tanks, report)
	s.importValves(ctx, inv.Valves, inv.ParentByName, report)
	s.importPipelines(ctx, inv.Pipelines, report)

	// Один сброс кэша на весь импорт
	if report.TanksImported+report.ValvesImported+report.PipelinesImported > 0 {
		s.network.invalidateComputations(ctx)
	}

	metrics.Get().RecordCompute("import", true, time.Since(start))
	telemetry.AddEvent(ctx, "network_imported",
		telemetry.ImportAttributes(report.TanksImported, report.ValvesImported, report.PipelinesImported, len(report.Diagnostics))...)

	return report, nil
}

func (s *ExportService) importTanks(ctx context.Context, tanks []domain.Tank, report *export.ImportReport) {
	for i := range tanks {
		tank := tanks[i]
		if err := validateTank(&tank); err != nil {
			report.Diagnostics = append(report.Diagnostics, importDiagnostic("tank", tank.Name, err))
			continue
		}
		if err := s.network.tanks.Create(ctx, &tank); err != nil {
			report.Diagnostics = append(report.Diagnostics, importDiagnostic("tank", tank.Name, err))
			continue
		}
		report.TanksImported++
	}
}

// importValves создаёт задвижки, затем вторым проходом привязывает
// дочерние к родителям: к моменту привязки у родителя уже есть идентификатор
func (s *ExportService) importValves(ctx context.Context, valves []domain.Valve, parentByName map[string]string, report *export.ImportReport) {
	created := make(map[string]*domain.Valve, len(valves))

	for i := range valves {
		valve := valves[i]
		if err := validateValve(&valve); err != nil {
			report.Diagnostics = append(report.Diagnostics, importDiagnostic("valve", valve.Name, err))
			continue
		}
		if err := s.network.valves.Create(ctx, &valve); err != nil {
			report.Diagnostics = append(report.Diagnostics, importDiagnostic("valve", valve.Name, err))
			continue
		}
		created[valve.Name] = &valve
		report.ValvesImported++
	}

	for childName, parentName := range parentByName {
		child, ok := created[childName]
		if !ok {
			continue
		}

		parent, ok := created[parentName]
		if !ok {
			report.Diagnostics = append(report.Diagnostics, domain.BuildDiagnostic{
				EntityID: child.ID,
				Message:  fmt.Sprintf("valve %q: parent valve %q not found in workbook; link skipped", childName, parentName),
			})
			continue
		}

		child.ParentValveID = parent.ID
		if err := s.network.valves.Update(ctx, child); err != nil {
			report.Diagnostics = append(report.Diagnostics, importDiagnostic("valve", childName, err))
		}
	}
}

func (s *ExportService) importPipelines(ctx context.Context, pipelines []domain.Pipeline, report *export.ImportReport) {
	for i := range pipelines {
		pipeline := pipelines[i]
		if err := validatePipeline(&pipeline); err != nil {
			report.Diagnostics = append(report.Diagnostics, importDiagnostic("pipeline", pipeline.Name, err))
			continue
		}
		if err := s.network.pipelines.Create(ctx, &pipeline); err != nil {
			report.Diagnostics = append(report.Diagnostics, importDiagnostic("pipeline", pipeline.Name, err))
			continue
		}
		report.PipelinesImported++
	}
}

func importDiagnostic(kind, name string, err error) domain.BuildDiagnostic {
	return domain.BuildDiagnostic{
		Message: fmt.Sprintf("%s %q: %v; skipped", kind, name, err),
	}
}
