package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.aura/internal/model"
)

type postParams struct {
	Content string `json:"content"`
}

func ListFeed(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		posts, err := app.ListFeed()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, posts)
	}
}

func ListUserPosts(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		posts, err := app.ListUserPosts(model.UserID(c.Param("userId")))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, posts)
	}
}

func CreatePost(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &postParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		post, err := app.CreatePost(params.Content)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, post)
	}
}
