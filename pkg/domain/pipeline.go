package domain

import "time"

// Pipeline участок трубопровода, заданный последовательностью точек
type Pipeline struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	Capacity  float64    `json:"capacity"`
	Waypoints []Position `json:"waypoints"`
	Locality  string     `json:"locality"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ValidWaypoints возвращает точки с конечными координатами, сохраняя порядок
func (p *Pipeline) ValidWaypoints() []Position {
	var result []Position
	for _, wp := range p.Waypoints {
		if wp.IsValid() {
			result = append(result, wp)
		}
	}
	return result
}

// SegmentCount возвращает число физических сегментов трубопровода
func (p *Pipeline) SegmentCount() int {
	if len(p.Waypoints) < 2 {
		return 0
	}
	return len(p.Waypoints) - 1
}

// ActivePipelines отбирает только действующие трубопроводы
func ActivePipelines(pipelines []Pipeline) []Pipeline {
	var result []Pipeline
	for _, p := range pipelines {
		if p.Active {
			result = append(result, p)
		}
	}
	return result
}

// TotalSegments суммирует (waypointCount - 1) по действующим трубопроводам
func TotalSegments(pipelines []Pipeline) int {
	total := 0
	for _, p := range pipelines {
		if p.Active {
			total += p.SegmentCount()
		}
	}
	return total
}
