package service

import "github.com/victorivanov/huddle/internal/models"

// AggregateReactions folds the raw reaction rows of one message into one
// summary per kind present. Rows must be in insertion order; reactor ids
// keep that order. Kinds are listed in order of their first reaction.
func AggregateReactions(rows []models.Reaction, viewerID int64) []models.ReactionSummary {
	summaries := []models.ReactionSummary{}
	index := make(map[models.ReactionKind]int)

	for _, r := range rows {
		i, ok := index[r.Kind]
		if !ok {
			i = len(summaries)
			index[r.Kind] = i
			summaries = append(summaries, models.ReactionSummary{Kind: r.Kind, ReactorIDs: []int64{}})
		}
		s := &summaries[i]
		s.ReactorIDs = append(s.ReactorIDs, r.UserID)
		if r.UserID == viewerID {
			s.ViewerHasReacted = true
		}
	}
	return summaries
}
