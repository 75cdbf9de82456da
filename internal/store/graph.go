package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
)

// edgeRow is the shared row shape of the three edge relations
// (abac_subject, abac_object, abac_action). The tables are schema-identical
// — only their name and the semantics of what "more general" means differ
// — so one Go type serves all three via GORM's Table() escape hatch
// instead of three near-duplicate structs.
type edgeRow struct {
	NamespaceID uuid.UUID            `gorm:"column:namespace_id;index"`
	Inbound     abac.CompositeColumn `gorm:"column:inbound;type:abac_attribute[]"`
	Outbound    abac.CompositeColumn `gorm:"column:outbound;type:abac_attribute[]"`
	CreatedAt   time.Time            `gorm:"column:created_at"`
}

// InsertEdge is idempotent on (namespace_id, inbound, outbound): composite-
// array columns carry no btree opclass to back a database-level unique
// constraint, so idempotency is enforced here rather than via ON CONFLICT.
// An inbound composite may legitimately fan out to several distinct
// outbound composites (an attribute belonging to several groups), so
// idempotency is checked against the full pair, not inbound alone.
func (s *Store) InsertEdge(ctx context.Context, relation abac.Relation, edge abac.Edge) error {
	existing, err := s.FindEdges(ctx, relation, edge.NamespaceID, edge.Inbound)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Outbound.Equal(edge.Outbound) {
			return nil
		}
	}
	row := edgeRow{
		NamespaceID: edge.NamespaceID,
		Inbound:     abac.CompositeColumn(abac.NewComposite(edge.Inbound...)),
		Outbound:    abac.CompositeColumn(abac.NewComposite(edge.Outbound...)),
		CreatedAt:   time.Now(),
	}
	err = s.DB.WithContext(ctx).Table(string(relation)).Create(&row).Error
	return wrapErr(err, "insert edge")
}

func (s *Store) DeleteEdge(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, inbound, outbound abac.Composite) error {
	inCol := abac.CompositeColumn(abac.NewComposite(inbound...))
	outCol := abac.CompositeColumn(abac.NewComposite(outbound...))
	err := s.DB.WithContext(ctx).Table(string(relation)).
		Where("namespace_id = ? AND inbound = ? AND outbound = ?", namespaceID, inCol, outCol).
		Delete(&edgeRow{}).Error
	return wrapErr(err, "delete edge")
}

func (s *Store) ListEdges(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, limit, offset int) ([]abac.Edge, error) {
	var rows []edgeRow
	q := s.DB.WithContext(ctx).Table(string(relation)).Where("namespace_id = ?", namespaceID).Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "list edges")
	}
	out := make([]abac.Edge, len(rows))
	for i, r := range rows {
		out[i] = abac.Edge{NamespaceID: r.NamespaceID, Inbound: abac.Composite(r.Inbound), Outbound: abac.Composite(r.Outbound)}
	}
	return out, nil
}

// FindEdges returns every edge whose Inbound exactly matches inbound within
// namespaceID — an inbound composite may belong to many outbound groups, so
// this deliberately does not collapse to the first row found.
func (s *Store) FindEdges(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, inbound abac.Composite) ([]abac.Edge, error) {
	col := abac.CompositeColumn(abac.NewComposite(inbound...))
	var rows []edgeRow
	err := s.DB.WithContext(ctx).Table(string(relation)).
		Where("namespace_id = ? AND inbound = ?", namespaceID, col).
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr(err, "find edges")
	}
	out := make([]abac.Edge, len(rows))
	for i, r := range rows {
		out[i] = abac.Edge{NamespaceID: r.NamespaceID, Inbound: abac.Composite(r.Inbound), Outbound: abac.Composite(r.Outbound)}
	}
	return out, nil
}

var _ abac.GraphStore = (*Store)(nil)
