package domain

// Snapshot согласованный срез сети, с которым работает вычислительное ядро.
// Все три коллекции материализуются до запуска расчётов; ядро их не изменяет.
type Snapshot struct {
	Tanks     []Tank     `json:"tanks"`
	Valves    []Valve    `json:"valves"`
	Pipelines []Pipeline `json:"pipelines"`
}

// ScenarioOverrides изменения среза для расчёта "что если".
// Срез с применёнными изменениями нигде не сохраняется.
type ScenarioOverrides struct {
	CloseValves      []string `json:"closeValves,omitempty"`
	OpenValves       []string `json:"openValves,omitempty"`
	DeactivateTanks  []string `json:"deactivateTanks,omitempty"`
	ActivateTanks    []string `json:"activateTanks,omitempty"`
	ExcludePipelines []string `json:"excludePipelines,omitempty"`
}

// IsEmpty проверяет, что изменений нет
func (o *ScenarioOverrides) IsEmpty() bool {
	return len(o.CloseValves) == 0 && len(o.OpenValves) == 0 &&
		len(o.DeactivateTanks) == 0 && len(o.ActivateTanks) == 0 &&
		len(o.ExcludePipelines) == 0
}
