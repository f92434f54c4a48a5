package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.aura/internal/model"
)

type loginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func RestoreSession(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := app.RestoreSession()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, newSessionResponse(result))
	}
}

func Login(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &loginParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		result, err := app.Login(params.Username, params.Password)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, newSessionResponse(result))
	}
}

func Register(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.RegisterParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		user, err := app.Register(params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, &userView{User: user})
	}
}

func Logout(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := app.Logout(); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func CurrentUser(app App) echo.HandlerFunc {
	return func(c echo.Context) error {
		current := app.Current()
		if current == nil {
			return model.ErrorUnauthenticated
		}
		return c.JSON(http.StatusOK, &sessionView{Session: current})
	}
}
