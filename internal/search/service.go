package search

import (
	"context"
	"log"

	"stageline/api/internal/store"
)

// TaskFinder is the database fallback used when Meilisearch is down.
type TaskFinder interface {
	SearchTasks(ctx context.Context, projectID, query string, limit int) ([]store.Task, error)
}

// Service is the facade that tries Meilisearch first and falls back to SQL.
type Service struct {
	meili    *Meili
	fallback TaskFinder
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, fallback TaskFinder) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise falls back to the database.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to sql: %v", err)
	}

	tasks, err := s.fallback.SearchTasks(ctx, q.ProjectID, q.Text, q.Limit)
	if err != nil {
		log.Printf("search: sql fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results := make([]Result, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, Result{
			ID:        t.ID,
			Title:     t.Title,
			Snippet:   t.Description,
			ProjectID: t.ProjectID,
			StageID:   t.StageID,
			Status:    t.Status,
		})
	}
	return Response{Results: results, Total: len(results), Query: q.Text}
}

// IndexTask indexes a task (fire-and-forget to Meilisearch).
func (s *Service) IndexTask(rec TaskRecord) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTask(rec); err != nil {
			log.Printf("search: index task %s: %v", rec.ID, err)
		}
	}()
}

// DeleteTask removes a task from the search index (fire-and-forget).
func (s *Service) DeleteTask(id string) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteTask(id); err != nil {
			log.Printf("search: delete task %s: %v", id, err)
		}
	}()
}

// ReindexTasks bulk-pushes tasks into Meilisearch, used at startup.
func (s *Service) ReindexTasks(recs []TaskRecord) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexTasks(recs); err != nil {
		log.Printf("search: reindex tasks: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
