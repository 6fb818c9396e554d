package domain

import (
	"fmt"
	"math"
)

// Position географическая точка в градусах
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key возвращает канонический ключ позиции: координаты, округлённые до 6 знаков
func (p Position) Key() string {
	return fmt.Sprintf("%.6f,%.6f", roundCoord(p.Latitude), roundCoord(p.Longitude))
}

// IsValid проверяет, что обе координаты конечные числа
func (p Position) IsValid() bool {
	return !math.IsNaN(p.Latitude) && !math.IsInf(p.Latitude, 0) &&
		!math.IsNaN(p.Longitude) && !math.IsInf(p.Longitude, 0)
}

// roundCoord округляет координату до 6 знаков после запятой
func roundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
