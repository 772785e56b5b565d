package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"noxchatAPI/internal/friendship"
	"noxchatAPI/internal/search"
	"noxchatAPI/internal/user"
)

const (
	SourceIndex    = "index"
	SourceDatabase = "database"

	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps page*MaxPageSize and the SQL offset inside 32 bits.
	MaxPage = math.MaxInt32 / MaxPageSize

	candidateFactor = 5
)

var errIndexFailed = errors.New("search index failed")

// UserFinder is the relational side of a user query.
type UserFinder interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*user.User, error)
	MatchUsers(ctx context.Context, m friendship.Match) ([]*user.User, error)
}

// ViewLister resolves the ids inside one of an actor's relationship views.
type ViewLister interface {
	IDsInView(ctx context.Context, actorID int64, view friendship.View) ([]int64, error)
}

type Page struct {
	Users   []*user.User `json:"users"`
	HasMore bool         `json:"has_more"`
	Page    int          `json:"page"`
	Source  string       `json:"source"`
}

// SearchService pages through users, ranked by the search index when it is
// available and answering from the relational store otherwise.
type SearchService struct {
	users  UserFinder
	views  ViewLister
	index  *search.Adapter
	logger *zap.SugaredLogger
}

func NewSearchService(users UserFinder, views ViewLister, index *search.Adapter, logger *zap.SugaredLogger) *SearchService {
	return &SearchService{users: users, views: views, index: index, logger: logger}
}

// Search is the unscoped global user search.
func (s *SearchService) Search(ctx context.Context, query string, page, pageSize int) (*Page, error) {
	query = strings.TrimSpace(query)
	page, pageSize = normalizePage(page, pageSize)
	if query == "" {
		return &Page{Users: []*user.User{}, Page: page, Source: SourceDatabase}, nil
	}

	if s.index.Enabled() {
		p, err := s.rankedGlobal(ctx, query, page, pageSize)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, errIndexFailed) {
			return nil, err
		}
		s.logger.Warnw("search index failed, using database", "query", query, "error", err)
	}

	search.RecordFallback(string(friendship.ViewAll))
	return s.relational(ctx, friendship.Match{View: friendship.ViewAll, Text: query}, page, pageSize)
}

// FriendsView pages through actor's friends, outgoing or incoming requests,
// optionally filtered by query.
func (s *SearchService) FriendsView(ctx context.Context, actorID int64, view friendship.View, query string, page, pageSize int) (*Page, error) {
	if view == friendship.ViewAll {
		return nil, fmt.Errorf("friends view requires a relationship view")
	}
	query = strings.TrimSpace(query)
	page, pageSize = normalizePage(page, pageSize)
	match := friendship.Match{ActorID: actorID, View: view, Text: query}

	if query == "" {
		return s.relational(ctx, match, page, pageSize)
	}

	if s.index.Enabled() {
		p, err := s.rankedScoped(ctx, actorID, view, query, page, pageSize)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, errIndexFailed) {
			return nil, err
		}
		s.logger.Warnw("search index failed, using database",
			"actor_id", actorID, "view", view, "query", query, "error", err)
	}

	search.RecordFallback(string(view))
	return s.relational(ctx, match, page, pageSize)
}

func (s *SearchService) rankedGlobal(ctx context.Context, query string, page, pageSize int) (*Page, error) {
	ids, total, err := s.index.Query(ctx, query, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errIndexFailed, err)
	}

	users, err := s.inOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &Page{
		Users:   users,
		HasMore: total > page*pageSize,
		Page:    page,
		Source:  SourceIndex,
	}, nil
}

// rankedScoped over-fetches ranked ids, keeps those inside the actor's view
// in relevance order and slices out the requested page.
func (s *SearchService) rankedScoped(ctx context.Context, actorID int64, view friendship.View, query string, page, pageSize int) (*Page, error) {
	universe, err := s.views.IDsInView(ctx, actorID, view)
	if err != nil {
		return nil, err
	}
	if len(universe) == 0 {
		return &Page{Users: []*user.User{}, Page: page, Source: SourceIndex}, nil
	}

	window := s.index.MaxWindow()
	if page <= window/(pageSize*candidateFactor) {
		window = pageSize * page * candidateFactor
	}
	candidates, _, err := s.index.Query(ctx, query, 1, window)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errIndexFailed, err)
	}

	inView := make(map[int64]struct{}, len(universe))
	for _, id := range universe {
		inView[id] = struct{}{}
	}
	matched := make([]int64, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := inView[id]; ok {
			matched = append(matched, id)
			delete(inView, id)
		}
	}

	start := min((page-1)*pageSize, len(matched))
	end := page * pageSize
	users, err := s.inOrder(ctx, matched[start:min(end, len(matched))])
	if err != nil {
		return nil, err
	}
	return &Page{
		Users:   users,
		HasMore: len(matched) > end,
		Page:    page,
		Source:  SourceIndex,
	}, nil
}

// relational answers with a substring match ordered by username, reading one
// extra row to learn whether another page exists.
func (s *SearchService) relational(ctx context.Context, m friendship.Match, page, pageSize int) (*Page, error) {
	m.Limit = pageSize + 1
	m.Offset = (page - 1) * pageSize

	users, err := s.users.MatchUsers(ctx, m)
	if err != nil {
		return nil, err
	}

	hasMore := len(users) > pageSize
	if hasMore {
		users = users[:pageSize]
	}
	return &Page{Users: users, HasMore: hasMore, Page: page, Source: SourceDatabase}, nil
}

// inOrder loads users and returns them in the order of ids. Ids without a
// row are skipped.
func (s *SearchService) inOrder(ctx context.Context, ids []int64) ([]*user.User, error) {
	if len(ids) == 0 {
		return []*user.User{}, nil
	}
	rows, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*user.User, len(rows))
	for _, u := range rows {
		byID[u.ID] = u
	}
	ordered := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
