package domain

import "math"

// Математические константы
const (
	Epsilon = 1e-9
)

// Параметры сети по умолчанию (переопределяются конфигурацией)
const (
	// DefaultConnectDistanceMeters радиус слияния точек в один узел графа
	DefaultConnectDistanceMeters = 50.0

	// DefaultValveBlockDistanceMeters радиус, в котором закрытая задвижка перекрывает сегмент
	DefaultValveBlockDistanceMeters = 3.0

	// DefaultAssociationDistanceMeters радиус привязки трубопровода к задвижке
	DefaultAssociationDistanceMeters = 15.0

	// DefaultCapacityUtilization доля номинальной пропускной способности, дающая оценку потока
	DefaultCapacityUtilization = 0.8

	// DefaultHouseholdFlowRate расход на одно домохозяйство, единиц потока
	DefaultHouseholdFlowRate = 10.0
)

// Пороги заполнения резервуара, проценты
const (
	FillThresholdLowPercent  = 10.0
	FillThresholdHighPercent = 80.0
)

// FloatEquals сравнивает два float64 с учётом Epsilon
func FloatEquals(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// IsZero проверяет, равно ли значение нулю
func IsZero(v float64) bool {
	return math.Abs(v) < Epsilon
}

// IsPositive проверяет, положительно ли значение
func IsPositive(v float64) bool {
	return v > Epsilon
}

// RoundVolume округляет объёмы и расходы до 2 знаков на границе выдачи
func RoundVolume(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundPercent округляет проценты до 1 знака на границе выдачи
func RoundPercent(v float64) float64 {
	return math.Round(v*10) / 10
}
