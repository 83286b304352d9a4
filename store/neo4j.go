package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphNode and GraphEdge are the Cytoscape-compatible shapes the
// /neo4j/related-data endpoint returns.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
}

type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

type GraphResult struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphRepository wraps a neo4j driver, exposing the
// db/repository/neo4j.go session/ExecuteRead pattern.
type GraphRepository struct {
	driver neo4j.DriverWithContext
}

func NewGraphRepository(uri, username, password string) (*GraphRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &GraphRepository{driver: driver}, nil
}

func (r *GraphRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func (r *GraphRepository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// RelatedData expands one hop of REFERENCES/RELATES_TO edges from the
// Standard node named standardName into a node/edge array, matching the
// Cytoscape shape the dashboard consumes.
func (r *GraphRepository) RelatedData(ctx context.Context, standardName string) (*GraphResult, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
			MATCH (s:Standard {name: $name})
			OPTIONAL MATCH (s)-[rel:REFERENCES|RELATES_TO]-(other:Standard)
			RETURN s, collect(DISTINCT rel) AS rels, collect(DISTINCT other) AS others
		`
		res, err := tx.Run(ctx, query, map[string]interface{}{"name": standardName})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return &GraphResult{Nodes: []GraphNode{}, Edges: []GraphEdge{}}, nil
		}
		record := res.Record()

		out := &GraphResult{}
		centerNode, _ := record.Get("s")
		if node, ok := centerNode.(neo4j.Node); ok {
			out.Nodes = append(out.Nodes, nodeToGraphNode(node, "center"))
		}

		othersRaw, _ := record.Get("others")
		if others, ok := othersRaw.([]interface{}); ok {
			for _, o := range others {
				if node, ok := o.(neo4j.Node); ok {
					out.Nodes = append(out.Nodes, nodeToGraphNode(node, "related"))
				}
			}
		}

		relsRaw, _ := record.Get("rels")
		if rels, ok := relsRaw.([]interface{}); ok {
			for _, rr := range rels {
				if rel, ok := rr.(neo4j.Relationship); ok {
					out.Edges = append(out.Edges, GraphEdge{
						ID:     fmt.Sprintf("e%d", rel.Id),
						Source: fmt.Sprintf("n%d", rel.StartId),
						Target: fmt.Sprintf("n%d", rel.EndId),
						Label:  rel.Type,
					})
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query related data: %w", err)
	}
	return result.(*GraphResult), nil
}

func nodeToGraphNode(node neo4j.Node, group string) GraphNode {
	name, _ := node.Props["name"].(string)
	if name == "" {
		name = fmt.Sprintf("n%d", node.Id)
	}
	return GraphNode{ID: fmt.Sprintf("n%d", node.Id), Label: name, Group: group}
}
