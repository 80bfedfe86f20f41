package fduhole

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fduhole/dxkit/internal/domain/model"
)

// LoadTags returns every forum tag.
func (c *Client) LoadTags(ctx context.Context) ([]model.Tag, error) {
	tags := []model.Tag{}
	err := c.do(ctx, call{
		method: http.MethodGet,
		base:   c.forum,
		path:   "/api/tags",
		out:    &tags,
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// LoadDivisions returns every forum division.
func (c *Client) LoadDivisions(ctx context.Context) ([]model.Division, error) {
	divisions := []model.Division{}
	err := c.do(ctx, call{
		method: http.MethodGet,
		base:   c.forum,
		path:   "/api/divisions",
		out:    &divisions,
	})
	if err != nil {
		return nil, err
	}
	return divisions, nil
}

type favoritesResponse struct {
	Data []int `json:"data"`
}

type favoriteRequest struct {
	HoleID int `json:"hole_id"`
}

// LoadFavoriteIDs returns the hole ids the user has favorited.
func (c *Client) LoadFavoriteIDs(ctx context.Context) ([]int, error) {
	var resp favoritesResponse
	err := c.do(ctx, call{
		method: http.MethodGet,
		base:   c.forum,
		path:   "/api/user/favorites",
		query:  url.Values{"plain": []string{"true"}},
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return nonNilIDs(resp.Data), nil
}

// ToggleFavorite adds (POST) or removes (DELETE) holeID from the favorites.
func (c *Client) ToggleFavorite(ctx context.Context, holeID int, add bool) ([]int, error) {
	method := http.MethodDelete
	if add {
		method = http.MethodPost
	}

	var resp favoritesResponse
	err := c.do(ctx, call{
		method: method,
		base:   c.forum,
		path:   "/api/user/favorites",
		body:   favoriteRequest{HoleID: holeID},
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return nonNilIDs(resp.Data), nil
}

func nonNilIDs(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
