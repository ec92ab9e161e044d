package handler_test

import (
    "context"
    "errors"
    "sort"
    "sync"
    "time"

    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/mindful-backend/internal/model"
    "github.com/iliyamo/mindful-backend/internal/repository"
    "github.com/iliyamo/mindful-backend/internal/utils"
)

// fakeUsers is an in-memory UserStore with exact email matching.
type fakeUsers struct {
    mu      sync.Mutex
    next    uint64
    byID    map[uint64]*model.User
    byEmail map[string]*model.User
}

func newFakeUsers() *fakeUsers {
    return &fakeUsers{byID: map[uint64]*model.User{}, byEmail: map[string]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, name, email, password string) (*model.User, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.byEmail[email]; ok {
        return nil, repository.ErrEmailExists
    }
    hash, err := utils.HashPassword(password, bcrypt.MinCost)
    if err != nil {
        return nil, err
    }
    f.next++
    u := &model.User{ID: f.next, Name: name, Email: email, PasswordHash: hash, CreatedAt: model.NewTimestamp(time.Now())}
    f.byID[u.ID], f.byEmail[email] = u, u
    return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if u, ok := f.byEmail[email]; ok {
        return u, nil
    }
    return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if u, ok := f.byID[id]; ok {
        return u, nil
    }
    return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) List(context.Context) ([]*model.User, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    out := []*model.User{}
    for _, u := range f.byID {
        out = append(out, u)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out, nil
}

func (f *fakeUsers) VerifyPassword(u *model.User, candidate string) bool {
    return u != nil && utils.VerifyPassword(u.PasswordHash, candidate)
}

// fakePosts keeps posts, comments and upvoter sets in memory.
type fakePosts struct {
    mu       sync.Mutex
    next     uint64
    posts    map[uint64]*model.Post
    upvoters map[uint64]map[uint64]bool
    comments map[uint64][]model.Comment
    failList error
}

func newFakePosts() *fakePosts {
    return &fakePosts{posts: map[uint64]*model.Post{}, upvoters: map[uint64]map[uint64]bool{}, comments: map[uint64][]model.Comment{}}
}

func (f *fakePosts) Create(_ context.Context, p *model.Post) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.next++
    p.ID, p.Comments, p.Upvotes, p.CreatedAt = f.next, []model.Comment{}, 0, model.NewTimestamp(time.Now())
    cp := *p
    f.posts[p.ID] = &cp
    f.upvoters[p.ID] = map[uint64]bool{}
    return nil
}

func (f *fakePosts) view(p *model.Post, viewer uint64) *model.Post {
    cp := *p
    cp.Comments = append([]model.Comment{}, f.comments[p.ID]...)
    cp.Upvotes = len(f.upvoters[p.ID])
    cp.Upvoted = f.upvoters[p.ID][viewer]
    return &cp
}

func (f *fakePosts) filter(keep func(*model.Post) bool, viewer uint64) ([]*model.Post, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.failList != nil {
        return nil, f.failList
    }
    out := []*model.Post{}
    for _, p := range f.posts {
        if keep(p) {
            out = append(out, f.view(p, viewer))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out, nil
}

func (f *fakePosts) ListByUser(_ context.Context, userID uint64) ([]*model.Post, error) {
    return f.filter(func(p *model.Post) bool { return p.UserID == userID }, userID)
}

func (f *fakePosts) ListAll(_ context.Context, viewer uint64, category string) ([]*model.Post, error) {
    return f.filter(func(p *model.Post) bool { return category == "" || p.Category == category }, viewer)
}

func (f *fakePosts) Delete(_ context.Context, id, requester uint64) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    p, ok := f.posts[id]
    if !ok {
        return repository.ErrPostNotFound
    }
    if p.UserID != requester {
        return repository.ErrForbidden
    }
    delete(f.posts, id)
    delete(f.upvoters, id)
    delete(f.comments, id)
    return nil
}

func (f *fakePosts) ToggleUpvote(_ context.Context, id, userID uint64) (int, bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    set, ok := f.upvoters[id]
    if !ok {
        return 0, false, repository.ErrPostNotFound
    }
    if set[userID] {
        delete(set, userID)
    } else {
        set[userID] = true
    }
    return len(set), set[userID], nil
}

func (f *fakePosts) AddComment(_ context.Context, postID, userID uint64, username, content string) (*model.Comment, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.posts[postID]; !ok {
        return nil, repository.ErrPostNotFound
    }
    c := model.Comment{ID: uint64(len(f.comments[postID]) + 1), PostID: postID, UserID: userID, Username: username,
        Content: content, CreatedAt: model.NewTimestamp(time.Now())}
    f.comments[postID] = append(f.comments[postID], c)
    return &c, nil
}

func (f *fakePosts) ListComments(_ context.Context, postID uint64) ([]model.Comment, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.posts[postID]; !ok {
        return nil, repository.ErrPostNotFound
    }
    return append([]model.Comment{}, f.comments[postID]...), nil
}

// fakeMoods returns entries newest first like the real store.
type fakeMoods struct {
    mu      sync.Mutex
    entries []*model.MoodEntry
}

func (f *fakeMoods) Create(_ context.Context, m *model.MoodEntry) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    m.ID = uint64(len(f.entries) + 1)
    if m.CreatedAt.IsZero() {
        m.CreatedAt = model.NewTimestamp(time.Now())
    }
    cp := *m
    f.entries = append(f.entries, &cp)
    return nil
}

func (f *fakeMoods) ListByUser(_ context.Context, userID uint64) ([]*model.MoodEntry, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    out := []*model.MoodEntry{}
    for _, m := range f.entries {
        if m.UserID == userID {
            out = append(out, m)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out, nil
}

// fakeClassifier returns a fixed label or error.
type fakeClassifier struct {
    available bool
    label     string
    err       error
    got       string
}

func (f *fakeClassifier) Available() bool { return f.available }

func (f *fakeClassifier) Classify(text string) (string, error) {
    f.got = text
    return f.label, f.err
}

// memMusic and memExercises back the real media service.
type memMusic struct {
    mu   sync.Mutex
    rows map[string]*model.Music
}

func (s *memMusic) Create(_ context.Context, m *model.Music) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    m.CreatedAt = model.NewTimestamp(time.Now())
    cp := *m
    s.rows[m.ID] = &cp
    return nil
}

func (s *memMusic) List(context.Context) ([]*model.Music, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := []*model.Music{}
    for _, m := range s.rows {
        cp := *m
        out = append(out, &cp)
    }
    return out, nil
}

func set(dst *string, v *string, changed *bool) {
    if v != nil && *dst != *v {
        *dst, *changed = *v, true
    }
}

func (s *memMusic) Update(_ context.Context, id string, u model.MusicUpdate) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    m, ok := s.rows[id]
    if !ok {
        return false, repository.ErrMediaNotFound
    }
    changed := false
    set(&m.MusicName, u.MusicName, &changed)
    set(&m.Author, u.Author, &changed)
    set(&m.Category, u.Category, &changed)
    return changed, nil
}

func (s *memMusic) Delete(_ context.Context, id string) (*model.Music, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    m, ok := s.rows[id]
    if !ok {
        return nil, repository.ErrMediaNotFound
    }
    delete(s.rows, id)
    return m, nil
}

type memExercises struct {
    mu   sync.Mutex
    rows map[string]*model.Exercise
}

func (s *memExercises) Create(_ context.Context, e *model.Exercise) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    e.CreatedAt = model.NewTimestamp(time.Now())
    cp := *e
    s.rows[e.ID] = &cp
    return nil
}

func (s *memExercises) List(context.Context) ([]*model.Exercise, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := []*model.Exercise{}
    for _, e := range s.rows {
        cp := *e
        out = append(out, &cp)
    }
    return out, nil
}

func (s *memExercises) Update(_ context.Context, id string, u model.ExerciseUpdate) (bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.rows[id]
    if !ok {
        return false, repository.ErrMediaNotFound
    }
    changed := false
    set(&e.ExerciseName, u.ExerciseName, &changed)
    set(&e.Category, u.Category, &changed)
    set(&e.Duration, u.Duration, &changed)
    set(&e.Difficulty, u.Difficulty, &changed)
    set(&e.Description, u.Description, &changed)
    if u.Instructions != nil {
        e.Instructions, changed = *u.Instructions, true
    }
    return changed, nil
}

func (s *memExercises) Delete(_ context.Context, id string) (*model.Exercise, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.rows[id]
    if !ok {
        return nil, repository.ErrMediaNotFound
    }
    delete(s.rows, id)
    return e, nil
}

var errBoom = errors.New("boom")
