package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Writer runs a managed write transaction. *Client satisfies it.
type Writer interface {
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error)
}

// Projector mirrors a dataset's record graph into the graph database so it
// can be explored with Cypher. Each projection replaces the previous one.
type Projector struct {
	writer Writer
	logger ectologger.Logger
}

func NewProjector(writer Writer, logger ectologger.Logger) *Projector {
	return &Projector{
		writer: writer,
		logger: logger,
	}
}

type nodeBatch struct {
	label string
	rows  []map[string]any
}

type linkBatch struct {
	fromLabel string
	relType   string
	toLabel   string
	rows      []map[string]any
}

// Project replaces the dataset's nodes and edges with those of g.
func (p *Projector) Project(ctx context.Context, datasetID string, g *Graph) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.Project")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": datasetID,
		"nodes":      len(g.Nodes()),
		"edges":      g.EdgeCount(),
	})

	nodes := nodeBatches(datasetID, g)
	links := linkBatches(datasetID, g)

	_, err := p.writer.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (n {dataset_id: $dataset_id})
			DETACH DELETE n
		`, map[string]any{"dataset_id": datasetID}); err != nil {
			return nil, err
		}

		for _, batch := range nodes {
			cypher := fmt.Sprintf(`
				UNWIND $batch AS props
				MERGE (n:%s {id: props.id, dataset_id: props.dataset_id})
				SET n += props
			`, batch.label)
			if _, err := tx.Run(ctx, cypher, map[string]any{"batch": batch.rows}); err != nil {
				return nil, err
			}
		}

		for _, batch := range links {
			cypher := fmt.Sprintf(`
				UNWIND $batch AS props
				MATCH (from:%s {id: props.from_id, dataset_id: props.dataset_id})
				MATCH (to:%s {id: props.to_id, dataset_id: props.dataset_id})
				MERGE (from)-[r:%s {id: props.id, dataset_id: props.dataset_id}]->(to)
				SET r += props
			`, batch.fromLabel, batch.toLabel, batch.relType)
			if _, err := tx.Run(ctx, cypher, map[string]any{"batch": batch.rows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		log.WithError(err).Error("Failed to project graph")
		return fmt.Errorf("failed to project graph: %w", err)
	}

	log.Debug("Projected graph")
	return nil
}

func nodeBatches(datasetID string, g *Graph) []nodeBatch {
	byLabel := make(map[string]*nodeBatch)
	var labels []string
	for _, node := range g.Nodes() {
		label := sanitizeLabel(node.Type)
		batch, ok := byLabel[label]
		if !ok {
			batch = &nodeBatch{label: label}
			byLabel[label] = batch
			labels = append(labels, label)
		}
		batch.rows = append(batch.rows, map[string]any{
			"id":          node.ID,
			"dataset_id":  datasetID,
			"record_type": node.Type,
		})
	}
	sort.Strings(labels)

	batches := make([]nodeBatch, 0, len(labels))
	for _, label := range labels {
		batches = append(batches, *byLabel[label])
	}
	return batches
}

func linkBatches(datasetID string, g *Graph) []linkBatch {
	byKey := make(map[string]*linkBatch)
	var keys []string
	for _, link := range g.Links() {
		batch := linkBatch{
			fromLabel: sanitizeLabel(link.From.Type),
			relType:   sanitizeLabel(link.Relation.RelationType),
			toLabel:   sanitizeLabel(link.To.Type),
		}
		key := batch.fromLabel + "|" + batch.relType + "|" + batch.toLabel
		existing, ok := byKey[key]
		if !ok {
			existing = &batch
			byKey[key] = existing
			keys = append(keys, key)
		}

		id := link.Relation.ID
		if id == "" {
			id = link.Relation.RelationType + "|" + link.From.String() + "|" + link.To.String()
		}
		existing.rows = append(existing.rows, map[string]any{
			"id":         id,
			"dataset_id": datasetID,
			"from_id":    link.From.ID,
			"to_id":      link.To.ID,
			"source_id":  link.Relation.SourceID,
		})
	}
	sort.Strings(keys)

	batches := make([]linkBatch, 0, len(keys))
	for _, key := range keys {
		batches = append(batches, *byKey[key])
	}
	return batches
}

// sanitizeLabel ensures the label is safe for Cypher
func sanitizeLabel(label string) string {
	result := make([]rune, 0, len(label))
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, c)
		}
	}
	if len(result) == 0 {
		return "Record"
	}
	if result[0] >= '0' && result[0] <= '9' {
		return "_" + string(result)
	}
	return string(result)
}
