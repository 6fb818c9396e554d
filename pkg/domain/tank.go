package domain

import "time"

// FillStatus статус заполнения резервуара
type FillStatus string

const (
	FillStatusLow     FillStatus = "low"
	FillStatusNormal  FillStatus = "normal"
	FillStatusHigh    FillStatus = "high"
	FillStatusUnknown FillStatus = "unknown"
)

// Tank резервуар водораспределительной сети
type Tank struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Position       Position  `json:"position"`
	IsActive       bool      `json:"isActive"`
	Locality       string    `json:"locality"`
	CapacityLiters float64   `json:"capacityLiters"`
	CurrentLiters  float64   `json:"currentLiters"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FillPercent возвращает заполнение в процентах, 0 при нулевой ёмкости
func (t *Tank) FillPercent() float64 {
	if t.CapacityLiters <= Epsilon {
		return 0
	}
	return t.CurrentLiters / t.CapacityLiters * 100
}

// FillThresholds пороги классификации заполнения, проценты
type FillThresholds struct {
	LowPercent  float64
	HighPercent float64
}

// DefaultFillThresholds пороги по умолчанию
func DefaultFillThresholds() FillThresholds {
	return FillThresholds{
		LowPercent:  FillThresholdLowPercent,
		HighPercent: FillThresholdHighPercent,
	}
}

// Classify классифицирует заполнение по порогам
func (ft FillThresholds) Classify(percent float64) FillStatus {
	switch {
	case percent < 0 || percent > 100:
		return FillStatusUnknown
	case percent < ft.LowPercent:
		return FillStatusLow
	case percent >= ft.HighPercent:
		return FillStatusHigh
	default:
		return FillStatusNormal
	}
}

// FillStatusFor классифицирует заполнение по порогам по умолчанию
func FillStatusFor(percent float64) FillStatus {
	return DefaultFillThresholds().Classify(percent)
}

// ActiveTanks отбирает только активные резервуары
func ActiveTanks(tanks []Tank) []Tank {
	var result []Tank
	for _, t := range tanks {
		if t.IsActive {
			result = append(result, t)
		}
	}
	return result
}
