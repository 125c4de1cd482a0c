package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/internal/repository"
)

// memoryPortalStore mirrors the conditional-update semantics of the SQL repositories.
type memoryPortalStore struct {
	mu          sync.Mutex
	seq         int
	requests    map[string]*models.DocumentRequest
	artifacts   map[string]*models.FileArtifact
	links       map[string]time.Time
	assignments map[string]string
	completed   []string
	createErrs  []error
	beforeApply func(requestID string)
}

func newMemoryPortalStore() *memoryPortalStore {
	return &memoryPortalStore{
		requests:    map[string]*models.DocumentRequest{},
		artifacts:   map[string]*models.FileArtifact{},
		links:       map[string]time.Time{},
		assignments: map[string]string{},
	}
}

func (m *memoryPortalStore) seed(req models.DocumentRequest, files ...models.FileArtifact) *models.DocumentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.DisplayNumber == "" {
		m.seq++
		req.DisplayNumber = fmt.Sprintf("DR-%06d", m.seq)
	}
	for i := range files {
		file := files[i]
		if file.ID == "" {
			file.ID = uuid.NewString()
		}
		file.RequestID = req.ID
		m.artifacts[file.ID] = &file
	}
	req.FileCount = m.countLocked(req.ID)
	m.requests[req.ID] = &req
	clone := req
	return &clone
}

func (m *memoryPortalStore) status(id string) models.RequestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

func (m *memoryPortalStore) linkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

func (m *memoryPortalStore) artifactCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.artifacts)
}

func (m *memoryPortalStore) Create(ctx context.Context, req *models.DocumentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		return err
	}
	for _, existing := range m.requests {
		if existing.Token == req.Token {
			return fmt.Errorf("create document request: %w", repository.ErrUniqueViolation)
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	m.seq++
	req.DisplayNumber = fmt.Sprintf("DR-%06d", m.seq)
	clone := *req
	m.requests[req.ID] = &clone
	return nil
}

func (m *memoryPortalStore) GetByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (m *memoryPortalStore) GetByToken(ctx context.Context, token string) (*models.DocumentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.Token == token {
			clone := *req
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryPortalStore) List(ctx context.Context, filter models.DocumentRequestFilter) ([]models.DocumentRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.DocumentRequest
	for _, req := range m.requests {
		if len(filter.Status) > 0 && !containsStatus(filter.Status, req.Status) {
			continue
		}
		if filter.OriginatingType != "" && req.OriginatingType != filter.OriginatingType {
			continue
		}
		result = append(result, *req)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DisplayNumber > result[j].DisplayNumber })
	total := len(result)
	if filter.Offset < len(result) {
		result = result[filter.Offset:]
	} else {
		result = nil
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (m *memoryPortalStore) Transition(ctx context.Context, params repository.TransitionParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[params.ID]
	if !ok || !containsStatus(params.From, req.Status) {
		return repository.ErrTransitionLost
	}
	if params.RequireOpenWindow && !req.TokenExpiresAt.After(params.At) {
		return repository.ErrTransitionLost
	}
	req.Status = params.To
	req.UpdatedAt = params.At
	switch params.To {
	case models.RequestStatusApproved, models.RequestStatusRejected:
		at := params.At
		req.ReviewCompletedAt = &at
	}
	if params.ReviewNotes != nil {
		notes := *params.ReviewNotes
		req.ReviewNotes = &notes
	}
	return nil
}

func (m *memoryPortalStore) ExpireIfPast(ctx context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.TokenExpiresAt.After(now) || !models.CanTransition(req.Status, models.RequestStatusExpired) {
		return false, nil
	}
	req.Status = models.RequestStatusExpired
	req.UpdatedAt = now
	return true, nil
}

func (m *memoryPortalStore) ExpireStale(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, req := range m.requests {
		if req.TokenExpiresAt.Before(now) && models.CanTransition(req.Status, models.RequestStatusExpired) {
			req.Status = models.RequestStatusExpired
			req.UpdatedAt = now
			ids = append(ids, req.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memoryPortalStore) StageArtifacts(ctx context.Context, params repository.StageParams) (repository.StageResult, error) {
	if m.beforeApply != nil {
		m.beforeApply(params.RequestID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[params.RequestID]
	open := []models.RequestStatus{models.RequestStatusSent, models.RequestStatusFilesReceived, models.RequestStatusUnderReview}
	if !ok || !containsStatus(open, req.Status) || !req.TokenExpiresAt.After(params.At) {
		return repository.StageResult{}, repository.ErrRequestClosed
	}
	for _, artifact := range params.Artifacts {
		clone := artifact
		clone.RequestID = req.ID
		m.artifacts[clone.ID] = &clone
	}
	result := repository.StageResult{}
	if req.Status == models.RequestStatusSent {
		req.Status = models.RequestStatusFilesReceived
		at := params.At
		req.FilesReceivedAt = &at
		result.FirstUpload = true
	}
	req.FileCount = m.countLocked(req.ID)
	result.FileCount = req.FileCount
	return result, nil
}

func (m *memoryPortalStore) Commit(ctx context.Context, params repository.CommitParams) (int, error) {
	if m.beforeApply != nil {
		m.beforeApply(params.RequestID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[params.RequestID]
	if !ok || !models.CanTransition(req.Status, models.RequestStatusApproved) || !req.TokenExpiresAt.After(params.At) {
		return 0, repository.ErrTransitionLost
	}
	req.Status = models.RequestStatusApproved
	at := params.At
	req.ReviewCompletedAt = &at
	req.UpdatedAt = params.At

	linked := 0
	for _, artifact := range m.artifacts {
		if artifact.RequestID != req.ID || artifact.ReviewStatus != models.ReviewStatusApproved {
			continue
		}
		key := artifact.ID + "|" + params.EntityType + "|" + params.EntityID
		if _, exists := m.links[key]; exists {
			continue
		}
		m.links[key] = params.At
		linked++
	}
	return linked, nil
}

func (m *memoryPortalStore) ListByRequest(ctx context.Context, requestID string) ([]models.FileArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.FileArtifact
	for _, artifact := range m.artifacts {
		if artifact.RequestID == requestID && artifact.DeletedAt == nil {
			result = append(result, *artifact)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FileName < result[j].FileName })
	return result, nil
}

func (m *memoryPortalStore) Get(ctx context.Context, requestID, artifactID string) (*models.FileArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	artifact, ok := m.artifacts[artifactID]
	if !ok || artifact.RequestID != requestID || artifact.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	clone := *artifact
	return &clone, nil
}

func (m *memoryPortalStore) UpdateReview(ctx context.Context, params repository.ReviewParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	artifact, ok := m.artifacts[params.ArtifactID]
	req := m.requests[params.RequestID]
	reviewable := []models.RequestStatus{models.RequestStatusFilesReceived, models.RequestStatusUnderReview}
	if !ok || req == nil || artifact.RequestID != req.ID || !containsStatus(reviewable, req.Status) {
		return repository.ErrRequestClosed
	}
	artifact.ReviewStatus = params.Status
	reviewer := params.ReviewedBy
	artifact.ReviewedBy = &reviewer
	at := params.ReviewedAt
	artifact.ReviewedAt = &at
	artifact.RejectionReason = params.RejectionReason
	return nil
}

func (m *memoryPortalStore) ListLinkedIDs(ctx context.Context, requestID, entityType, entityID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for key := range m.links {
		for _, artifact := range m.artifacts {
			if artifact.RequestID == requestID && key == artifact.ID+"|"+entityType+"|"+entityID {
				ids = append(ids, artifact.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memoryPortalStore) CreateReviewAssignment(ctx context.Context, requestID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.assignments[requestID]; !exists {
		m.assignments[requestID] = ownerID
	}
	return nil
}

func (m *memoryPortalStore) CompleteAssignment(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.assignments[requestID]; exists {
		delete(m.assignments, requestID)
		m.completed = append(m.completed, requestID)
	}
	return nil
}

func (m *memoryPortalStore) countLocked(requestID string) int {
	count := 0
	for _, artifact := range m.artifacts {
		if artifact.RequestID == requestID && artifact.DeletedAt == nil {
			count++
		}
	}
	return count
}

func containsStatus(list []models.RequestStatus, status models.RequestStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}
