// ABOUTME: This file computes comparative bias rankings per topic over a window
// ABOUTME: Scalar judgment scores are nudged by pairwise comparison edges
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"bias-tracker/config"
	"bias-tracker/domain"
	"bias-tracker/repository"

	"github.com/google/uuid"
)

// rankerService implementation.
type rankerService struct {
	judgments   repository.JudgmentRepository
	comparisons repository.ComparisonRepository
	rankings    repository.RankingRepository
	topics      *config.TopicSet
	cfg         config.RankerConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewRankerService creates a new ranker service.
func NewRankerService(
	judgments repository.JudgmentRepository,
	comparisons repository.ComparisonRepository,
	rankings repository.RankingRepository,
	topics *config.TopicSet,
	cfg config.RankerConfig,
	logger *slog.Logger,
) RankerService {
	return &rankerService{
		judgments:   judgments,
		comparisons: comparisons,
		rankings:    rankings,
		topics:      topics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// RunOnce recomputes and stores a snapshot for every configured topic.
func (s *rankerService) RunOnce(ctx context.Context) error {
	for _, topic := range s.topics.All() {
		if _, err := s.ComputeSnapshot(ctx, topic.ID); err != nil {
			return fmt.Errorf("failed to rank topic %s: %w", topic.ID, err)
		}
	}

	return nil
}

// ComputeSnapshot derives a fresh ranking for one topic. The result is a
// pure function of judgments and edges in the window; recomputation never
// feeds back into judgment state.
func (s *rankerService) ComputeSnapshot(ctx context.Context, topicID string) (*domain.RankingSnapshot, error) {
	topic, err := s.topics.Topic(topicID)
	if err != nil {
		return nil, err
	}

	to := s.now().UTC()
	from := to.Add(-s.cfg.Window)

	records, err := s.judgments.FindByTopicWindow(ctx, topicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load window judgments: %w", err)
	}

	scores := make(map[string]float64, len(records))
	directions := make(map[string]string, len(records))

	for _, record := range records {
		scores[record.ArticleID] = topic.DirectionSign(record.Direction) * record.Strength * record.Confidence
		directions[record.ArticleID] = record.Direction
	}

	edges, err := s.comparisons.FindByTopicWindow(ctx, topicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load comparison edges: %w", err)
	}

	for _, edge := range edges {
		s.applyEdge(scores, edge)
	}

	entries := make([]domain.RankedArticle, 0, len(scores))
	for articleID, score := range scores {
		entries = append(entries, domain.RankedArticle{
			ArticleID: articleID,
			Direction: directions[articleID],
			Score:     score,
		})
	}

	// Ordered along the spectrum from pole A to pole B, article ID as the
	// deterministic tiebreak.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}

		return entries[i].ArticleID < entries[j].ArticleID
	})

	snapshot := &domain.RankingSnapshot{
		ID:          uuid.New(),
		TopicID:     topicID,
		WindowFrom:  from,
		WindowTo:    to,
		GeneratedAt: to,
		Entries:     entries,
	}

	if err := s.rankings.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ranking snapshot computed",
		"topic_id", topicID,
		"entries", len(entries),
		"edges", len(edges))

	return snapshot, nil
}

// applyEdge nudges the bias magnitudes of a compared pair. The winner moves
// away from neutral, the loser toward it; an equal outcome pulls both toward
// their shared mean magnitude. Opposing edges on the same pair cancel out
// instead of cycling.
func (s *rankerService) applyEdge(scores map[string]float64, edge *domain.ComparisonEdge) {
	scoreA, okA := scores[edge.ArticleA]
	scoreB, okB := scores[edge.ArticleB]

	if !okA || !okB {
		return
	}

	delta := s.cfg.EdgeWeight * edge.Confidence

	switch edge.Outcome {
	case domain.OutcomeAMoreBiased:
		scores[edge.ArticleA] = nudgeMagnitude(scoreA, delta)
		scores[edge.ArticleB] = nudgeMagnitude(scoreB, -delta)
	case domain.OutcomeBMoreBiased:
		scores[edge.ArticleA] = nudgeMagnitude(scoreA, -delta)
		scores[edge.ArticleB] = nudgeMagnitude(scoreB, delta)
	case domain.OutcomeEqual:
		mean := (math.Abs(scoreA) + math.Abs(scoreB)) / 2
		scores[edge.ArticleA] = moveMagnitudeToward(scoreA, mean, delta)
		scores[edge.ArticleB] = moveMagnitudeToward(scoreB, mean, delta)
	}
}

// nudgeMagnitude changes |score| by delta while preserving sign, clamped to
// the [-1, 1] spectrum. Neutral scores stay neutral: with no direction there
// is nothing to amplify.
func nudgeMagnitude(score, delta float64) float64 {
	if score == 0 {
		return 0
	}

	sign := 1.0
	if score < 0 {
		sign = -1.0
	}

	magnitude := math.Abs(score) + delta
	magnitude = math.Max(0, math.Min(1, magnitude))

	return sign * magnitude
}

func moveMagnitudeToward(score, target, delta float64) float64 {
	if score == 0 {
		return 0
	}

	magnitude := math.Abs(score)
	if magnitude > target {
		return nudgeMagnitude(score, -math.Min(delta, magnitude-target))
	}

	return nudgeMagnitude(score, math.Min(delta, target-magnitude))
}
