package domain

import "time"

// ValveCategory категория задвижки
type ValveCategory string

const (
	ValveCategoryMain ValveCategory = "main"
	ValveCategorySub  ValveCategory = "sub"
)

// IsKnown проверяет, что категория одна из поддерживаемых
func (c ValveCategory) IsKnown() bool {
	return c == ValveCategoryMain || c == ValveCategorySub
}

// Valve задвижка сети
type Valve struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Position      Position      `json:"position"`
	IsOpen        bool          `json:"isOpen"`
	Category      ValveCategory `json:"category"`
	ParentValveID string        `json:"parentValveId,omitempty"`
	Households    int           `json:"households"`
	Locality      string        `json:"locality"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IsMain проверяет, является ли задвижка магистральной
func (v *Valve) IsMain() bool {
	return v.Category == ValveCategoryMain
}

// ClosedValves отбирает только закрытые задвижки
func ClosedValves(valves []Valve) []Valve {
	var result []Valve
	for _, v := range valves {
		if !v.IsOpen {
			result = append(result, v)
		}
	}
	return result
}
