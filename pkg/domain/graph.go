package domain

// GraphNode узел сети: каноническая позиция и инцидентные рёбра
type GraphNode struct {
	Key      string
	Position Position
	Edges    []GraphEdge
}

// GraphEdge направленная запись одного физического сегмента трубопровода.
// Каждый сегмент вносится в граф в обе стороны, PipelineID указывает владельца.
type GraphEdge struct {
	From       string
	To         string
	PipelineID string
}

// SegmentKey возвращает ключ неориентированной пары узлов: меньший ключ первым
func (e GraphEdge) SegmentKey() string {
	if e.From < e.To {
		return e.From + "|" + e.To
	}
	return e.To + "|" + e.From
}

// NetworkGraph граф водораспределительной сети.
// Узлы хранятся в отображении по каноническому ключу позиции; порядок вставки
// сохраняется отдельно, потому что привязка точек к узлам зависит от него.
type NetworkGraph struct {
	Nodes map[string]*GraphNode

	order []string
}

// NewNetworkGraph создаёт пустой граф
func NewNetworkGraph() *NetworkGraph {
	return &NetworkGraph{
		Nodes: make(map[string]*GraphNode),
	}
}

// AddNode добавляет узел и запоминает порядок вставки
func (g *NetworkGraph) AddNode(key string, pos Position) *GraphNode {
	node := &GraphNode{Key: key, Position: pos}
	g.Nodes[key] = node
	g.order = append(g.order, key)
	return node
}

// Node возвращает узел по ключу
func (g *NetworkGraph) Node(key string) (*GraphNode, bool) {
	node, ok := g.Nodes[key]
	return node, ok
}

// NodesInOrder возвращает узлы в порядке вставки
func (g *NetworkGraph) NodesInOrder() []*GraphNode {
	result := make([]*GraphNode, 0, len(g.order))
	for _, key := range g.order {
		result = append(result, g.Nodes[key])
	}
	return result
}

// AddSegment вносит физический сегмент как пару встречных рёбер
func (g *NetworkGraph) AddSegment(fromKey, toKey, pipelineID string) {
	if from, ok := g.Nodes[fromKey]; ok {
		from.Edges = append(from.Edges, GraphEdge{From: fromKey, To: toKey, PipelineID: pipelineID})
	}
	if to, ok := g.Nodes[toKey]; ok {
		to.Edges = append(to.Edges, GraphEdge{From: toKey, To: fromKey, PipelineID: pipelineID})
	}
}

// NodeCount возвращает количество узлов
func (g *NetworkGraph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount возвращает количество направленных записей рёбер
func (g *NetworkGraph) EdgeCount() int {
	total := 0
	for _, node := range g.Nodes {
		total += len(node.Edges)
	}
	return total
}

// Clone создаёт глубокую копию графа
func (g *NetworkGraph) Clone() *NetworkGraph {
	clone := NewNetworkGraph()
	clone.order = make([]string, len(g.order))
	copy(clone.order, g.order)
	for key, node := range g.Nodes {
		copied := &GraphNode{Key: node.Key, Position: node.Position}
		copied.Edges = make([]GraphEdge, len(node.Edges))
		copy(copied.Edges, node.Edges)
		clone.Nodes[key] = copied
	}
	return clone
}
