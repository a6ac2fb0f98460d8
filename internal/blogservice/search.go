package blogservice

import (
	"context"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// UUIDRX matches the canonical 8-4-4-4-12 form only.
var UUIDRX = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Search dispatches on the query: a post id returns that post if published, anything else
// is a case-insensitive substring match on published titles, newest first.
func (s *BlogService) Search(ctx context.Context, q string) ([]Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Post{}, nil
	}

	if UUIDRX.MatchString(q) {
		id, err := uuid.Parse(q)
		if err != nil {
			return []Post{}, nil
		}

		b := s.m.selectPosts().
			Where(sq.Eq{"p.id": id, "p.is_published": true})

		return s.m.list(ctx, b)
	}

	b := s.m.selectPosts().
		Where(sq.ILike{"p.title": "%" + escapeLike(q) + "%"}).
		Where(sq.Eq{"p.is_published": true}).
		OrderBy("p.created_at DESC").
		Limit(MaxPageSize)

	return s.m.list(ctx, b)
}
