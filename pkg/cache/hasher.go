package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"watergrid/pkg/domain"
)

// SnapshotHash вычисляет хеш среза сети для использования как ключ кэша.
// Учитываются только поля, влияющие на расчёт: позиции, состояния,
// пропускные способности. Имена и даты изменений не учитываются.
func SnapshotHash(snapshot domain.Snapshot) string {
	data := snapshotToCanonical(snapshot)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// snapshotToCanonical создаёт детерминированное представление среза
func snapshotToCanonical(snapshot domain.Snapshot) []byte {
	tanks := make([]domain.Tank, len(snapshot.Tanks))
	copy(tanks, snapshot.Tanks)
	sort.Slice(tanks, func(i, j int) bool { return tanks[i].ID < tanks[j].ID })

	valves := make([]domain.Valve, len(snapshot.Valves))
	copy(valves, snapshot.Valves)
	sort.Slice(valves, func(i, j int) bool { return valves[i].ID < valves[j].ID })

	pipelines := make([]domain.Pipeline, len(snapshot.Pipelines))
	copy(pipelines, snapshot.Pipelines)
	sort.Slice(pipelines, func(i, j int) bool { return pipelines[i].ID < pipelines[j].ID })

	var result []byte

	for _, t := range tanks {
		result = append(result, []byte(fmt.Sprintf("t:%s:%t:%.6f:%.6f;",
			t.ID, t.IsActive, t.Position.Latitude, t.Position.Longitude))...)
	}

	for _, v := range valves {
		result = append(result, []byte(fmt.Sprintf("v:%s:%t:%s:%s:%d:%.6f:%.6f;",
			v.ID, v.IsOpen, v.Category, v.ParentValveID, v.Households,
			v.Position.Latitude, v.Position.Longitude))...)
	}

	for _, p := range pipelines {
		result = append(result, []byte(fmt.Sprintf("p:%s:%t:%.6f", p.ID, p.Active, p.Capacity))...)
		for _, wp := range p.Waypoints {
			result = append(result, []byte(fmt.Sprintf(":%.6f,%.6f", wp.Latitude, wp.Longitude))...)
		}
		result = append(result, ';')
	}

	return result
}

// HashParams строит хеш набора числовых параметров расчёта
func HashParams(values ...float64) string {
	var data []byte
	for _, v := range values {
		data = append(data, []byte(fmt.Sprintf("%.6f;", v))...)
	}
	return hex.EncodeToString(sha256Sum(data)[:8])
}

// BuildFlowKey строит ключ кэша для результата распространения потока
func BuildFlowKey(snapshotHash string) string {
	return fmt.Sprintf("flow:%s", snapshotHash)
}

// BuildSupplyKey строит ключ кэша для результата распределения воды
func BuildSupplyKey(snapshotHash string) string {
	return fmt.Sprintf("supply:%s", snapshotHash)
}

// BuildKeyWithParams дополняет ключ хешем параметров расчёта
func BuildKeyWithParams(key, paramsHash string) string {
	if paramsHash == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", key, paramsHash)
}

func sha256Sum(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}
