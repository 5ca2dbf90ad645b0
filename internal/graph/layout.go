package graph

const (
	layoutOrigin = 50
	laneWidth    = 320
	rowHeight    = 200
	defaultLane  = 2
	laneCount    = 7
)

// lanes order resource types left to right along a typical request path.
var lanes = map[ResourceType]int{
	TypeFrontend:     0,
	TypeCDN:          0,
	TypeAuth:         1,
	TypeAPI:          2,
	TypeLambda:       3,
	TypeWorkflow:     3,
	TypeQueue:        4,
	TypeEvents:       4,
	TypeNotification: 4,
	TypeStream:       5,
	TypeDatabase:     6,
	TypeStorage:      6,
}

// Lane returns the layout column for a node. Unrecognised types share the api lane.
func Lane(n Node) int {
	if l, ok := lanes[ResolveType(n)]; ok {
		return l
	}
	return defaultLane
}

// AssignPositions places newNodes below whatever already occupies their lane.
// The input slices are not modified.
func AssignPositions(newNodes, existing []Node) []Node {
	var rowCounts [laneCount]int
	for _, n := range existing {
		rowCounts[Lane(n)]++
	}

	out := make([]Node, len(newNodes))
	for i, n := range newNodes {
		lane := Lane(n)
		n.Position = Position{
			X: layoutOrigin + lane*laneWidth,
			Y: layoutOrigin + rowCounts[lane]*rowHeight,
		}
		rowCounts[lane]++
		out[i] = n
	}
	return out
}
