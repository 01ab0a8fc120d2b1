package repositories

import (
	"context"
	"strconv"
	"time"

	"github.com/maxaizer/autoapply/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
)

type criteriaRepository interface {
	Get(ctx context.Context, userID int64) (models.MatchCriteria, error)
	Save(ctx context.Context, criteria models.MatchCriteria) error
}

type CachedCriteria struct {
	repo  criteriaRepository
	cache *gocache.Cache
}

func NewCachedCriteria(repo criteriaRepository) *CachedCriteria {
	return &CachedCriteria{repo: repo, cache: gocache.New(10*time.Minute, 20*time.Minute)}
}

func (c *CachedCriteria) Get(ctx context.Context, userID int64) (models.MatchCriteria, error) {
	key := strconv.FormatInt(userID, 10)
	if value, found := c.cache.Get(key); found {
		return value.(models.MatchCriteria), nil
	}

	criteria, err := c.repo.Get(ctx, userID)
	if err != nil {
		return criteria, err
	}
	c.cache.SetDefault(key, criteria)
	return criteria, nil
}

func (c *CachedCriteria) Save(ctx context.Context, criteria models.MatchCriteria) error {
	if err := c.repo.Save(ctx, criteria); err != nil {
		return err
	}
	c.cache.Delete(strconv.FormatInt(criteria.UserID, 10))
	return nil
}
