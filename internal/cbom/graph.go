package cbom

import "strings"

type NodeKind string

const (
	NodeApplication NodeKind = "application"
	NodeService     NodeKind = "service"
	NodeLibrary     NodeKind = "library"
	NodeAlgorithm   NodeKind = "algorithm"
	NodeProtocol    NodeKind = "protocol"
)

type Node struct {
	ID    string        `json:"id"`
	Kind  NodeKind      `json:"kind"`
	Label string        `json:"label"`
	Risk  QuantumStatus `json:"risk,omitempty"`
}

type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a node/edge projection of an inventory. Libraries, algorithms and
// protocols are shared nodes so services using the same asset meet there.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// HasNode reports whether id is a node of g.
func (g Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func ApplicationNodeID(app string) string { return "app:" + foldKey(app) }

func ServiceNodeID(app, svc string) string { return "svc:" + foldKey(app) + "/" + foldKey(svc) }

func BuildGraph(inv *Inventory) Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	if inv == nil {
		return g
	}
	seen := make(map[string]struct{})
	addNode := func(n Node) {
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n)
	}
	edges := make(map[Edge]struct{})
	addEdge := func(from, to string) {
		e := Edge{From: from, To: to}
		if _, ok := edges[e]; ok {
			return
		}
		edges[e] = struct{}{}
		g.Edges = append(g.Edges, e)
	}

	for _, app := range inv.Applications {
		appID := ApplicationNodeID(app.Name)
		addNode(Node{ID: appID, Kind: NodeApplication, Label: app.Name})
		for _, svc := range app.Services {
			svcID := ServiceNodeID(app.Name, svc.Name)
			addNode(Node{ID: svcID, Kind: NodeService, Label: svc.Name})
			addEdge(appID, svcID)
			for _, lib := range svc.Libraries {
				id := "lib:" + foldKey(lib.Name)
				addNode(Node{ID: id, Kind: NodeLibrary, Label: lib.Name})
				addEdge(svcID, id)
			}
			for _, alg := range svc.Algorithms {
				id := "alg:" + foldKey(alg.Name)
				addNode(Node{ID: id, Kind: NodeAlgorithm, Label: alg.Name, Risk: alg.Quantum})
				addEdge(svcID, id)
			}
			for _, proto := range svc.Protocols {
				id := "proto:" + foldKey(proto.Name)
				label := proto.Name
				if proto.Version != "" && !strings.Contains(label, proto.Version) {
					label += " " + proto.Version
				}
				addNode(Node{ID: id, Kind: NodeProtocol, Label: label})
				addEdge(svcID, id)
			}
		}
	}
	return g
}
