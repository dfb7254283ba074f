package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/repository"
)

// In-memory repository fakes shared across the service tests.

type userRepoFake struct {
	users     map[string]domain.User
	createErr error
}

func newUserRepoFake(users ...domain.User) *userRepoFake {
	f := &userRepoFake{users: make(map[string]domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *userRepoFake) Create(_ context.Context, user domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Username == user.Username && existing.DeleteDate == nil {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *userRepoFake) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := f.users[id]; ok {
		u := user
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *userRepoFake) GetActiveByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Username == username && user.DeleteDate == nil {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *userRepoFake) Update(_ context.Context, user domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *userRepoFake) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	user, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

func (f *userRepoFake) UpdateOnboarding(_ context.Context, id string, onboarding bool) error {
	user, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Onboarding = onboarding
	f.users[id] = user
	return nil
}

func (f *userRepoFake) SoftDelete(_ context.Context, username string, deletedAt time.Time) error {
	for id, user := range f.users {
		if user.Username == username && user.DeleteDate == nil {
			at := deletedAt
			user.DeleteDate = &at
			f.users[id] = user
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *userRepoFake) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	users := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		if user.DeleteDate != nil {
			continue
		}
		if filter.RoleID != "" && user.RoleID != filter.RoleID {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.Compare(users[i].Username, users[j].Username) < 0
	})
	return users, nil
}

type tokenRepoFake struct {
	tokens map[string]domain.AuthenticationToken
}

func newTokenRepoFake(tokens ...domain.AuthenticationToken) *tokenRepoFake {
	f := &tokenRepoFake{tokens: make(map[string]domain.AuthenticationToken)}
	for _, t := range tokens {
		f.tokens[t.ID] = t
	}
	return f
}

func (f *tokenRepoFake) Create(_ context.Context, token domain.AuthenticationToken) error {
	f.tokens[token.ID] = token
	return nil
}

func (f *tokenRepoFake) Get(_ context.Context, tokenID string) (*domain.AuthenticationToken, error) {
	if token, ok := f.tokens[tokenID]; ok {
		t := token
		return &t, nil
	}
	return nil, repository.ErrNotFound
}

func (f *tokenRepoFake) GetByUserID(_ context.Context, userID string) ([]domain.AuthenticationToken, error) {
	tokens := make([]domain.AuthenticationToken, 0)
	for _, token := range f.tokens {
		if token.UserID == userID {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func (f *tokenRepoFake) UpdateLastConnectionDate(_ context.Context, tokenID string, at time.Time) error {
	token, ok := f.tokens[tokenID]
	if !ok {
		return repository.ErrNotFound
	}
	token.LastConnectionDate = &at
	f.tokens[tokenID] = token
	return nil
}

func (f *tokenRepoFake) Delete(_ context.Context, tokenID string) error {
	if _, ok := f.tokens[tokenID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.tokens, tokenID)
	return nil
}

func (f *tokenRepoFake) DeleteByUserID(_ context.Context, userID, exceptTokenID string) error {
	for id, token := range f.tokens {
		if token.UserID == userID && id != exceptTokenID {
			delete(f.tokens, id)
		}
	}
	return nil
}

func (f *tokenRepoFake) DeleteOldSessionTokens(_ context.Context, userID string, cutoff time.Time) (int, error) {
	pruned := 0
	for id, token := range f.tokens {
		if token.UserID == userID && !token.LongLasted && token.CreateDate.Before(cutoff) {
			delete(f.tokens, id)
			pruned++
		}
	}
	return pruned, nil
}

type recoveryRepoFake struct {
	recoveries map[string]domain.PasswordRecovery
}

func newRecoveryRepoFake() *recoveryRepoFake {
	return &recoveryRepoFake{recoveries: make(map[string]domain.PasswordRecovery)}
}

func (f *recoveryRepoFake) Create(_ context.Context, recovery domain.PasswordRecovery) error {
	f.recoveries[recovery.ID] = recovery
	return nil
}

func (f *recoveryRepoFake) GetActiveByID(_ context.Context, id string, cutoff time.Time) (*domain.PasswordRecovery, error) {
	recovery, ok := f.recoveries[id]
	if !ok || !recovery.CreateDate.After(cutoff) {
		return nil, repository.ErrNotFound
	}
	r := recovery
	return &r, nil
}

func (f *recoveryRepoFake) DeleteByUsername(_ context.Context, username string) error {
	for id, recovery := range f.recoveries {
		if recovery.Username == username {
			delete(f.recoveries, id)
		}
	}
	return nil
}

type roleRepoFake struct {
	capabilities map[string]domain.CapabilitySet
}

func newRoleRepoFake() *roleRepoFake {
	return &roleRepoFake{capabilities: map[string]domain.CapabilitySet{
		"admin": domain.NewCapabilitySet(domain.BaseFunctionAdmin, domain.BaseFunctionPassword),
		"user":  domain.NewCapabilitySet(domain.BaseFunctionPassword),
	}}
}

func (f *roleRepoFake) GetBaseFunctions(_ context.Context, roleID string) (domain.CapabilitySet, error) {
	return f.capabilities[roleID], nil
}

type documentRepoFake struct {
	documents map[string]domain.Document
}

func newDocumentRepoFake(documents ...domain.Document) *documentRepoFake {
	f := &documentRepoFake{documents: make(map[string]domain.Document)}
	for _, d := range documents {
		f.documents[d.ID] = d
	}
	return f
}

func (f *documentRepoFake) Create(_ context.Context, document domain.Document) error {
	f.documents[document.ID] = document
	return nil
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if document, ok := f.documents[id]; ok && document.DeleteDate == nil {
		d := document
		return &d, nil
	}
	return nil, repository.ErrNotFound
}

func (f *documentRepoFake) FindByUserID(_ context.Context, userID string) ([]domain.Document, error) {
	documents := make([]domain.Document, 0)
	for _, document := range f.documents {
		if document.UserID == userID && document.DeleteDate == nil {
			documents = append(documents, document)
		}
	}
	return documents, nil
}

func (f *documentRepoFake) SoftDelete(_ context.Context, id string) error {
	document, ok := f.documents[id]
	if !ok || document.DeleteDate != nil {
		return repository.ErrNotFound
	}
	at := time.Now().UTC()
	document.DeleteDate = &at
	f.documents[id] = document
	return nil
}

type fileRepoFake struct {
	files     map[string]domain.File
	createErr error
}

func newFileRepoFake(files ...domain.File) *fileRepoFake {
	f := &fileRepoFake{files: make(map[string]domain.File)}
	for _, file := range files {
		f.files[file.ID] = file
	}
	return f
}

func (f *fileRepoFake) Create(_ context.Context, file domain.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.files[file.ID] = file
	return nil
}

func (f *fileRepoFake) GetByID(_ context.Context, id string) (*domain.File, error) {
	if file, ok := f.files[id]; ok && file.DeleteDate == nil {
		fl := file
		return &fl, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fileRepoFake) FindByUserID(_ context.Context, userID string) ([]domain.File, error) {
	files := make([]domain.File, 0)
	for _, file := range f.files {
		if file.UserID == userID && file.DeleteDate == nil {
			files = append(files, file)
		}
	}
	return files, nil
}

func (f *fileRepoFake) FindByDocumentID(_ context.Context, documentID string) ([]domain.File, error) {
	files := make([]domain.File, 0)
	for _, file := range f.files {
		if file.DocumentID != nil && *file.DocumentID == documentID && file.DeleteDate == nil {
			files = append(files, file)
		}
	}
	return files, nil
}

func (f *fileRepoFake) SoftDelete(_ context.Context, id string) error {
	file, ok := f.files[id]
	if !ok || file.DeleteDate != nil {
		return repository.ErrNotFound
	}
	at := time.Now().UTC()
	file.DeleteDate = &at
	f.files[id] = file
	return nil
}

type outboxRepoFake struct {
	events []domain.OutboxEvent
}

func (f *outboxRepoFake) Append(_ context.Context, events ...domain.OutboxEvent) error {
	f.events = append(f.events, events...)
	return nil
}

func (f *outboxRepoFake) ListPending(_ context.Context, limit int) ([]domain.OutboxEvent, error) {
	pending := make([]domain.OutboxEvent, 0)
	for _, event := range f.events {
		if event.DispatchDate == nil {
			pending = append(pending, event)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (f *outboxRepoFake) MarkDispatched(_ context.Context, id string, at time.Time) error {
	for i, event := range f.events {
		if event.ID == id {
			dispatched := at
			f.events[i].DispatchDate = &dispatched
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *outboxRepoFake) pendingTypes() []string {
	types := make([]string, 0)
	for _, event := range f.events {
		if event.DispatchDate == nil {
			types = append(types, event.EventType)
		}
	}
	sort.Strings(types)
	return types
}

type routeModelRepoFake struct {
	byUsername map[string]string
}

func (f *routeModelRepoFake) FindNameByTargetUsername(_ context.Context, username string) (string, error) {
	if f.byUsername == nil {
		return "", nil
	}
	return f.byUsername[username], nil
}

// atomicFake runs the transactional function directly against the fakes.
// failWith short-circuits to simulate a failed transaction.
type atomicFake struct {
	repos    port.AtomicRepos
	failWith error
}

func (f *atomicFake) RunAtomic(ctx context.Context, fn func(ctx context.Context, repos port.AtomicRepos) error) error {
	if f.failWith != nil {
		return f.failWith
	}
	return fn(ctx, f.repos)
}

type publisherFake struct {
	passwordLost    []domain.PasswordLostEvent
	documentDeleted []domain.DocumentDeletedEvent
	fileDeleted     []domain.FileDeletedEvent
	failWith        error
}

func (f *publisherFake) PublishPasswordLost(_ context.Context, event domain.PasswordLostEvent) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.passwordLost = append(f.passwordLost, event)
	return nil
}

func (f *publisherFake) PublishDocumentDeleted(_ context.Context, event domain.DocumentDeletedEvent) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.documentDeleted = append(f.documentDeleted, event)
	return nil
}

func (f *publisherFake) PublishFileDeleted(_ context.Context, event domain.FileDeletedEvent) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.fileDeleted = append(f.fileDeleted, event)
	return nil
}

var errBoom = errors.New("boom")
