// ABOUTME: This file provides in-memory repository implementations
// ABOUTME: Used by tests and local runs without a database
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"bias-tracker/domain"
)

// MemoryArticleRepository is a mutex-guarded in-memory ArticleRepository.
type MemoryArticleRepository struct {
	mu       sync.Mutex
	articles map[string]*domain.Article
}

func NewMemoryArticleRepository() *MemoryArticleRepository {
	return &MemoryArticleRepository{articles: make(map[string]*domain.Article)}
}

func (r *MemoryArticleRepository) InsertIfAbsent(_ context.Context, article *domain.Article) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[article.ID]; ok {
		return false, nil
	}

	stored := *article
	r.articles[article.ID] = &stored

	return true, nil
}

func (r *MemoryArticleRepository) FindByID(_ context.Context, articleID string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	article, ok := r.articles[articleID]
	if !ok {
		return nil, domain.ErrArticleNotFound
	}

	found := *article

	return &found, nil
}

func (r *MemoryArticleRepository) SetAuthorKey(_ context.Context, articleID, authorKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	article, ok := r.articles[articleID]
	if !ok {
		return domain.ErrArticleNotFound
	}

	article.AuthorKey = authorKey

	return nil
}

// Count reports how many articles are stored.
func (r *MemoryArticleRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.articles)
}

type judgmentKey struct {
	articleID string
	topicID   string
}

// MemoryJudgmentRepository is a mutex-guarded in-memory JudgmentRepository.
type MemoryJudgmentRepository struct {
	mu        sync.Mutex
	records   map[judgmentKey]*domain.JudgmentRecord
	published map[string]time.Time
}

func NewMemoryJudgmentRepository() *MemoryJudgmentRepository {
	return &MemoryJudgmentRepository{
		records:   make(map[judgmentKey]*domain.JudgmentRecord),
		published: make(map[string]time.Time),
	}
}

// SetPublishedAt registers an article's publication time so window queries
// can filter without an article repository join.
func (r *MemoryJudgmentRepository) SetPublishedAt(articleID string, publishedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.published[articleID] = publishedAt
}

func (r *MemoryJudgmentRepository) Exists(_ context.Context, articleID, topicID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.records[judgmentKey{articleID, topicID}]

	return ok, nil
}

func (r *MemoryJudgmentRepository) Find(_ context.Context, articleID, topicID string) (*domain.JudgmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[judgmentKey{articleID, topicID}]
	if !ok {
		return nil, domain.ErrJudgmentNotFound
	}

	found := *record

	return &found, nil
}

func (r *MemoryJudgmentRepository) InsertIfAbsent(_ context.Context, record *domain.JudgmentRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := judgmentKey{record.ArticleID, record.TopicID}
	if _, ok := r.records[key]; ok {
		return false, nil
	}

	stored := *record
	r.records[key] = &stored

	return true, nil
}

func (r *MemoryJudgmentRepository) Replace(_ context.Context, record *domain.JudgmentRecord) (*domain.JudgmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := judgmentKey{record.ArticleID, record.TopicID}

	previous, ok := r.records[key]
	if !ok {
		return nil, domain.ErrJudgmentNotFound
	}

	if !previous.IsFallback() {
		return nil, domain.ErrJudgmentExists
	}

	stored := *record
	r.records[key] = &stored
	displaced := *previous

	return &displaced, nil
}

func (r *MemoryJudgmentRepository) TopicDistribution(_ context.Context, topic *domain.TopicDefinition) (*domain.TopicStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &domain.TopicStats{TopicID: topic.ID, DisplayName: topic.DisplayName}

	for key, record := range r.records {
		if key.topicID != topic.ID {
			continue
		}

		stats.TotalArticles++

		switch record.Direction {
		case topic.Poles[0]:
			stats.PoleACount++
		case topic.Poles[1]:
			stats.PoleBCount++
		case domain.CategoryNeutral:
			stats.NeutralCount++
		}

		if record.CreatedAt.After(stats.LastProcessed) {
			stats.LastProcessed = record.CreatedAt
		}
	}

	return stats, nil
}

func (r *MemoryJudgmentRepository) FindByArticle(_ context.Context, articleID string) ([]*domain.JudgmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []*domain.JudgmentRecord

	for key, record := range r.records {
		if key.articleID == articleID {
			found := *record
			records = append(records, &found)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].TopicID < records[j].TopicID })

	return records, nil
}

func (r *MemoryJudgmentRepository) FindFallbacks(_ context.Context, limit int) ([]*domain.JudgmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []*domain.JudgmentRecord

	for _, record := range r.records {
		if record.IsFallback() {
			found := *record
			records = append(records, &found)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func (r *MemoryJudgmentRepository) FindByTopicWindow(_ context.Context, topicID string, from, to time.Time) ([]*domain.JudgmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []*domain.JudgmentRecord

	for key, record := range r.records {
		if key.topicID != topicID {
			continue
		}

		publishedAt, ok := r.published[key.articleID]
		if ok && (publishedAt.Before(from) || !publishedAt.Before(to)) {
			continue
		}

		found := *record
		records = append(records, &found)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ArticleID < records[j].ArticleID })

	return records, nil
}

func (r *MemoryJudgmentRepository) ListRecent(_ context.Context, limit int) ([]*domain.JudgmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []*domain.JudgmentRecord

	for _, record := range r.records {
		found := *record
		records = append(records, &found)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// MemoryAuthorRepository is a mutex-guarded in-memory AuthorRepository.
type MemoryAuthorRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.AuthorProfile
}

func NewMemoryAuthorRepository() *MemoryAuthorRepository {
	return &MemoryAuthorRepository{profiles: make(map[string]*domain.AuthorProfile)}
}

func (r *MemoryAuthorRepository) Find(_ context.Context, key string) (*domain.AuthorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[key]
	if !ok {
		return nil, domain.ErrAuthorNotFound
	}

	return cloneProfile(profile), nil
}

func (r *MemoryAuthorRepository) Save(_ context.Context, profile *domain.AuthorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.Key] = cloneProfile(profile)

	return nil
}

func cloneProfile(profile *domain.AuthorProfile) *domain.AuthorProfile {
	clone := *profile
	clone.Variants = append([]string(nil), profile.Variants...)
	clone.Sources = append([]string(nil), profile.Sources...)
	clone.TopicCounts = make(map[string]domain.CategoryCounts, len(profile.TopicCounts))

	for topicID, counts := range profile.TopicCounts {
		cloned := make(domain.CategoryCounts, len(counts))
		for category, n := range counts {
			cloned[category] = n
		}

		clone.TopicCounts[topicID] = cloned
	}

	return &clone
}

// MemoryComparisonRepository is a mutex-guarded in-memory ComparisonRepository.
type MemoryComparisonRepository struct {
	mu    sync.Mutex
	edges []storedEdge
}

type storedEdge struct {
	createdAt time.Time
	edge      domain.ComparisonEdge
}

func NewMemoryComparisonRepository() *MemoryComparisonRepository {
	return &MemoryComparisonRepository{}
}

func (r *MemoryComparisonRepository) Insert(_ context.Context, edge *domain.ComparisonEdge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.edges = append(r.edges, storedEdge{createdAt: time.Now().UTC(), edge: *edge})

	return nil
}

func (r *MemoryComparisonRepository) FindByTopicWindow(_ context.Context, topicID string, from, to time.Time) ([]*domain.ComparisonEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var edges []*domain.ComparisonEdge

	for _, stored := range r.edges {
		if stored.edge.TopicID != topicID {
			continue
		}

		if stored.createdAt.Before(from) || !stored.createdAt.Before(to) {
			continue
		}

		edge := stored.edge
		edges = append(edges, &edge)
	}

	return edges, nil
}

// MemoryRankingRepository is a mutex-guarded in-memory RankingRepository.
type MemoryRankingRepository struct {
	mu        sync.Mutex
	snapshots map[string][]*domain.RankingSnapshot
}

func NewMemoryRankingRepository() *MemoryRankingRepository {
	return &MemoryRankingRepository{snapshots: make(map[string][]*domain.RankingSnapshot)}
}

func (r *MemoryRankingRepository) SaveSnapshot(_ context.Context, snapshot *domain.RankingSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *snapshot
	stored.Entries = append([]domain.RankedArticle(nil), snapshot.Entries...)
	r.snapshots[snapshot.TopicID] = append(r.snapshots[snapshot.TopicID], &stored)

	return nil
}

func (r *MemoryRankingRepository) LatestSnapshot(_ context.Context, topicID string) (*domain.RankingSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := r.snapshots[topicID]
	if len(snapshots) == 0 {
		return nil, domain.ErrNoSnapshot
	}

	latest := *snapshots[len(snapshots)-1]

	return &latest, nil
}
