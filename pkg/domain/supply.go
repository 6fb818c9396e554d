package domain

// ValveSupply задвижка с расчётными показателями снабжения
type ValveSupply struct {
	Valve            Valve   `json:"valve"`
	TotalFlow        float64 `json:"totalFlow"`
	ServedHouseholds int     `json:"servedHouseholds"`
}

// ValveTreeNode магистральная задвижка с дочерними и распределением потока
type ValveTreeNode struct {
	Valve            Valve         `json:"valve"`
	Children         []ValveSupply `json:"children"`
	DirectHouseholds int           `json:"directHouseholds"`
	ServedHouseholds int           `json:"servedHouseholds"`
	TotalFlow        float64       `json:"totalFlow"`

	// DirectFlow доля потока, приходящаяся на собственные домохозяйства
	DirectFlow float64 `json:"directFlow"`
}

// SupplyStats сводные показатели снабжения по всей сети
type SupplyStats struct {
	TotalHouseholds       int     `json:"totalHouseholds"`
	ServedHouseholds      int     `json:"servedHouseholds"`
	CoveragePercent       float64 `json:"coveragePercent"`
	TotalFlow             float64 `json:"totalFlow"`
	AvgSupplyPerHousehold float64 `json:"avgSupplyPerHousehold"`
	MainValveCount        int     `json:"mainValveCount"`
	SubValveCount         int     `json:"subValveCount"`
	ActiveTankCount       int     `json:"activeTankCount"`
}

// RegionSummary показатели снабжения по населённому пункту
type RegionSummary struct {
	Name             string        `json:"name"`
	Valves           []ValveSupply `json:"valves"`
	TotalHouseholds  int           `json:"totalHouseholds"`
	ServedHouseholds int           `json:"servedHouseholds"`
	TotalFlow        float64       `json:"totalFlow"`
}

// SupplyOverview полный результат распределения снабжения
type SupplyOverview struct {
	Stats     SupplyStats     `json:"stats"`
	Regions   []RegionSummary `json:"regions"`
	ValveTree []ValveTreeNode `json:"valveTree"`
}
