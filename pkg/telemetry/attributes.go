package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Сеть
	AttrNetworkTanks     = "network.tanks"
	AttrNetworkValves    = "network.valves"
	AttrNetworkPipelines = "network.pipelines"
	AttrNetworkLocality  = "network.locality"

	// Расчёт потока
	AttrFlowSegments = "flow.segments"
	AttrFlowFlowing  = "flow.flowing_segments"
	AttrFlowBlocked  = "flow.blocked_segments"
	AttrFlowCacheHit = "flow.cache_hit"

	// Снабжение
	AttrSupplyCoverage   = "supply.coverage_percent"
	AttrSupplyServed     = "supply.served_households"
	AttrSupplyHouseholds = "supply.total_households"

	// Сценарий
	AttrScenarioOverrides   = "scenario.overrides"
	AttrScenarioDiagnostics = "scenario.diagnostics"

	// Валидация
	AttrValidationIssues = "validation.issues"
	AttrValidationPassed = "validation.passed"

	// Экспорт
	AttrExportFormat = "export.format"
	AttrExportBytes  = "export.bytes"

	// Импорт
	AttrImportTanks       = "import.tanks"
	AttrImportValves      = "import.valves"
	AttrImportPipelines   = "import.pipelines"
	AttrImportDiagnostics = "import.diagnostics"
)

// NetworkAttributes возвращает атрибуты размера сети
func NetworkAttributes(tanks, valves, pipelines int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkTanks, tanks),
		attribute.Int(AttrNetworkValves, valves),
		attribute.Int(AttrNetworkPipelines, pipelines),
	}
}

// FlowAttributes возвращает атрибуты расчёта потока
func FlowAttributes(flowing, blocked int, cacheHit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrFlowFlowing, flowing),
		attribute.Int(AttrFlowBlocked, blocked),
		attribute.Int(AttrFlowSegments, flowing+blocked),
		attribute.Bool(AttrFlowCacheHit, cacheHit),
	}
}

// SupplyAttributes возвращает атрибуты обзора снабжения
func SupplyAttributes(coveragePercent float64, served, total int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64(AttrSupplyCoverage, coveragePercent),
		attribute.Int(AttrSupplyServed, served),
		attribute.Int(AttrSupplyHouseholds, total),
	}
}

// ScenarioAttributes возвращает атрибуты гипотетического расчёта
func ScenarioAttributes(overrides, diagnostics int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrScenarioOverrides, overrides),
		attribute.Int(AttrScenarioDiagnostics, diagnostics),
	}
}

// ExportAttributes возвращает атрибуты выгрузки документа
func ExportAttributes(format string, sizeBytes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrExportFormat, format),
		attribute.Int(AttrExportBytes, sizeBytes),
	}
}

// ImportAttributes возвращает атрибуты импорта инвентарной книги
func ImportAttributes(tanks, valves, pipelines, diagnostics int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrImportTanks, tanks),
		attribute.Int(AttrImportValves, valves),
		attribute.Int(AttrImportPipelines, pipelines),
		attribute.Int(AttrImportDiagnostics, diagnostics),
	}
}

// ValidationAttributes возвращает атрибуты проверки сети
func ValidationAttributes(issues int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrValidationIssues, issues),
		attribute.Bool(AttrValidationPassed, passed),
	}
}
