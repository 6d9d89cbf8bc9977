package services

import (
	"sort"

	"github.com/ak/millboard/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MatchByID       = "id"
	MatchByPosition = "position"
)

// LabMatch is the lab paired with one order item, if any
type LabMatch struct {
	Lab       *models.Lab
	MatchedBy string
}

// Reconcile pairs each order item with at most one existing lab.
//
// An item first takes the oldest unclaimed lab whose order_item_id is the
// item's id. Items left without one fall back to position: the lab at the
// same index (labs ordered by created_at) is taken only if it is unclaimed
// and orphaned, i.e. its order_item_id points at no current item. A lab is
// never paired with two items.
func Reconcile(items []models.OrderItem, labs []*models.Lab) []LabMatch {
	ordered := make([]*models.Lab, len(labs))
	copy(ordered, labs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID.Hex() < ordered[j].ID.Hex()
	})

	current := make(map[primitive.ObjectID]bool, len(items))
	for _, item := range items {
		current[item.ID] = true
	}

	matches := make([]LabMatch, len(items))
	claimed := make(map[primitive.ObjectID]bool, len(ordered))

	for i, item := range items {
		for _, lab := range ordered {
			if !claimed[lab.ID] && lab.OrderItemID == item.ID {
				matches[i] = LabMatch{Lab: lab, MatchedBy: MatchByID}
				claimed[lab.ID] = true
				break
			}
		}
	}

	for i := range items {
		if matches[i].Lab != nil || i >= len(ordered) {
			continue
		}
		lab := ordered[i]
		if claimed[lab.ID] || current[lab.OrderItemID] {
			continue
		}
		matches[i] = LabMatch{Lab: lab, MatchedBy: MatchByPosition}
		claimed[lab.ID] = true
	}

	return matches
}

// Unclaimed returns the labs Reconcile paired with no item, oldest first
func Unclaimed(labs []*models.Lab, matches []LabMatch) []*models.Lab {
	used := make(map[primitive.ObjectID]bool, len(matches))
	for _, m := range matches {
		if m.Lab != nil {
			used[m.Lab.ID] = true
		}
	}
	var out []*models.Lab
	for _, lab := range labs {
		if !used[lab.ID] {
			out = append(out, lab)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
