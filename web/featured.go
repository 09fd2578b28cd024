package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// ====================================================================
// Фичеред-уровни
// ====================================================================

// FeaturedLevel - курируемый уровень с рейтинговым тиром
type FeaturedLevel struct {
	Id       int32 `json:"id"`
	LevelId  int32 `json:"level_id"`
	RateTier int32 `json:"rate_tier"`
}

// FeaturedHistoryPage - страница истории фичеред-уровней
type FeaturedHistoryPage struct {
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Levels     []FeaturedLevel `json:"levels"`
}

// FetchFeaturedLevel запрашивает текущий фичеред-уровень
func (c *Client) FetchFeaturedLevel(ctx context.Context) (*FeaturedLevel, error) {
	body, err := c.Get(ctx, "/flevel/current", nil)
	if err != nil {
		return nil, err
	}

	var level FeaturedLevel
	if err := json.Unmarshal([]byte(body), &level); err != nil {
		return nil, fmt.Errorf("parse featured level: %w", err)
	}
	return &level, nil
}

// FetchFeaturedHistory запрашивает страницу истории
func (c *Client) FetchFeaturedHistory(ctx context.Context, page int) (*FeaturedHistoryPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	body, err := c.Get(ctx, "/flevel/historyv2", params)
	if err != nil {
		return nil, err
	}

	var out FeaturedHistoryPage
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("parse featured history: %w", err)
	}
	return &out, nil
}

// ReplaceFeaturedLevel назначает новый фичеред-уровень. Требует
// админских прав, сервер проверяет aid и пароль
func (c *Client) ReplaceFeaturedLevel(ctx context.Context, levelId, rateTier int32, accountId int32, adminPassword string) error {
	params := url.Values{}
	params.Set("newlevel", strconv.FormatInt(int64(levelId), 10))
	params.Set("rate_tier", strconv.FormatInt(int64(rateTier), 10))
	params.Set("aid", strconv.FormatInt(int64(accountId), 10))
	params.Set("adminpwd", adminPassword)

	_, err := c.Post(ctx, "/flevel/replace", params)
	return err
}
