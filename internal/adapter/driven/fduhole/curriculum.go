package fduhole

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fduhole/dxkit/internal/domain/model"
	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// LoadCourseHash returns the digest of the current course catalog.
func (c *Client) LoadCourseHash(ctx context.Context) (string, error) {
	var resp struct {
		Hash string `json:"hash"`
	}
	err := c.do(ctx, call{
		method: http.MethodGet,
		base:   c.curriculum,
		path:   "/courses/hash",
		out:    &resp,
	})
	if err != nil {
		return "", err
	}
	if resp.Hash == "" {
		return "", fmt.Errorf("/courses/hash: %w: empty hash", driven.ErrDecode)
	}
	return resp.Hash, nil
}

// LoadCourseGroups downloads the full course catalog.
func (c *Client) LoadCourseGroups(ctx context.Context) ([]model.CourseGroup, error) {
	groups := []model.CourseGroup{}
	err := c.do(ctx, call{
		method: http.MethodGet,
		base:   c.curriculum,
		path:   "/courses",
		out:    &groups,
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}
